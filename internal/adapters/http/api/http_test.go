package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/hoopdex/internal/adapters/repository"
	service "github.com/okian/hoopdex/internal/app"
	"github.com/okian/hoopdex/internal/domain/model"
	"github.com/okian/hoopdex/internal/domain/query"
	"github.com/okian/hoopdex/internal/domain/similarity"
	"github.com/okian/hoopdex/internal/domain/vector"
	"github.com/okian/hoopdex/internal/ingest"
	. "github.com/smartystreets/goconvey/convey"
)

func fixtureEntry() repository.Entry {
	return repository.Entry{
		Record: model.BuildRecord{
			ID:       "guards-0001-slasher",
			Name:     "Slasher",
			Source:   "guards.csv",
			Position: model.PointGuard,
			Height:   model.Scalar(75),
			Tags:     []string{"Slasher"},
			Attrs: []model.Attribute{
				{Name: "speed", Cell: model.Interval(85, 95)},
			},
		},
		Vector:   vector.New([]vector.Dim{{Name: "speed", Value: 1}}),
		Strength: 1,
	}
}

// stubDeps satisfies Dependencies with overridable behavior per test.
type stubDeps struct {
	searchFn    func(ctx context.Context, pred *query.Predicate, page, pageSize int) (*service.SearchResult, error)
	recommendFn func(ctx context.Context, id string, k int) (*service.RecommendResult, error)
	compareFn   func(ctx context.Context, aID, bID string) (*service.CompareResult, error)
	getBuildFn  func(ctx context.Context, id string) (repository.Entry, string, error)
	reloadFn    func(ctx context.Context) (*ingest.Report, error)
	statsFn     func(ctx context.Context) (*service.Stats, error)
}

func (s *stubDeps) Search(ctx context.Context, pred *query.Predicate, page, pageSize int) (*service.SearchResult, error) {
	return s.searchFn(ctx, pred, page, pageSize)
}

func (s *stubDeps) Recommend(ctx context.Context, id string, k int) (*service.RecommendResult, error) {
	return s.recommendFn(ctx, id, k)
}

func (s *stubDeps) Compare(ctx context.Context, aID, bID string) (*service.CompareResult, error) {
	return s.compareFn(ctx, aID, bID)
}

func (s *stubDeps) GetBuild(ctx context.Context, id string) (repository.Entry, string, error) {
	return s.getBuildFn(ctx, id)
}

func (s *stubDeps) Reload(ctx context.Context) (*ingest.Report, error) {
	return s.reloadFn(ctx)
}

func (s *stubDeps) GetStats(ctx context.Context) (*service.Stats, error) {
	return s.statsFn(ctx)
}

func newTestMux(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(deps).Register(context.Background(), mux)
	return mux
}

func TestSearchEndpoint(t *testing.T) {
	Convey("Given the search route", t, func() {
		deps := &stubDeps{
			searchFn: func(_ context.Context, pred *query.Predicate, page, pageSize int) (*service.SearchResult, error) {
				return &service.SearchResult{
					GenerationID: "gen-1",
					Total:        1,
					Page:         page,
					PageSize:     pageSize,
					Entries:      []repository.Entry{fixtureEntry()},
				}, nil
			},
		}
		mux := newTestMux(deps)

		Convey("A valid POST returns the page", func() {
			body := `{"position":"PG","attributes":[{"name":"speed","op":"gte","value":80}],"page":2,"page_size":5}`
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body)))

			So(rec.Code, ShouldEqual, http.StatusOK)
			var resp searchResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Generation, ShouldEqual, "gen-1")
			So(resp.Page, ShouldEqual, 2)
			So(resp.PageSize, ShouldEqual, 5)
			So(resp.Results, ShouldHaveLength, 1)
			So(resp.Results[0].ID, ShouldEqual, "guards-0001-slasher")
			So(resp.Results[0].Attributes[0].Raw, ShouldEqual, "85-95")
		})

		Convey("Malformed JSON is a 400", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("{not json")))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A predicate validation failure is a 400", func() {
			deps.searchFn = func(context.Context, *query.Predicate, int, int) (*service.SearchResult, error) {
				return nil, query.ErrUnknownPosition
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"position":"GK"}`)))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET on the search route is not found", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestBuildsEndpoints(t *testing.T) {
	Convey("Given the builds routes", t, func() {
		deps := &stubDeps{
			getBuildFn: func(_ context.Context, id string) (repository.Entry, string, error) {
				if id != "guards-0001-slasher" {
					return repository.Entry{}, "", repository.ErrNotFound
				}
				return fixtureEntry(), "gen-1", nil
			},
			recommendFn: func(_ context.Context, id string, k int) (*service.RecommendResult, error) {
				return &service.RecommendResult{
					GenerationID: "gen-1",
					AnchorID:     id,
					Neighbors: []similarity.Neighbor{
						{Entry: fixtureEntry(), Score: 0.97, SharedDims: 4},
					},
				}, nil
			},
		}
		mux := newTestMux(deps)

		Convey("GET /builds/{id} returns the build", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/guards-0001-slasher", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			var resp buildDetailResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Build.Name, ShouldEqual, "Slasher")
			So(resp.Build.Height.Midpoint, ShouldEqual, 75)
		})

		Convey("An unknown id is a 404", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/ghost", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("GET /builds/{id}/similar returns ranked neighbors", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/guards-0001-slasher/similar?k=3", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			var resp similarResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Anchor, ShouldEqual, "guards-0001-slasher")
			So(resp.Neighbors, ShouldHaveLength, 1)
			So(resp.Neighbors[0].Score, ShouldAlmostEqual, 0.97, 1e-9)
		})

		Convey("A non-numeric k is a 400", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/guards-0001-slasher/similar?k=lots", nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Too few shared dimensions surfaces as 422", func() {
			deps.recommendFn = func(context.Context, string, int) (*service.RecommendResult, error) {
				return nil, vector.ErrInsufficientDimensions
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/builds/guards-0001-slasher/similar", nil))
			So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})
	})
}

func TestCompareEndpoint(t *testing.T) {
	Convey("Given the compare route", t, func() {
		deps := &stubDeps{
			compareFn: func(_ context.Context, aID, bID string) (*service.CompareResult, error) {
				return &service.CompareResult{
					GenerationID: "gen-1",
					Comparison: &similarity.Comparison{
						A:          fixtureEntry(),
						B:          fixtureEntry(),
						Score:      1,
						SharedDims: 1,
						Deltas: []similarity.Delta{
							{Attribute: "speed", RawA: "85-95", RawB: "85-95", Bucket: similarity.BucketNegligible},
						},
					},
				}, nil
			},
		}
		mux := newTestMux(deps)

		Convey("Both ids present returns the report", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/compare?a=x&b=y", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			var resp compareResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Deltas, ShouldHaveLength, 1)
			So(resp.Deltas[0].Bucket, ShouldEqual, similarity.BucketNegligible)
		})

		Convey("A missing id is a 400", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/compare?a=x", nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestReloadEndpoint(t *testing.T) {
	Convey("Given the reload route", t, func() {
		deps := &stubDeps{
			reloadFn: func(context.Context) (*ingest.Report, error) {
				return &ingest.Report{
					GenerationID: "gen-2",
					Sources: []ingest.SourceReport{{
						Name:         "centers.csv",
						RowsTotal:    3,
						RowsIngested: 2,
						RowsSkipped:  1,
						RowErrors: []ingest.RowError{{
							Source: "centers.csv",
							Row:    2,
							Column: "vertical",
							Value:  "90-70",
							Reason: "malformed interval",
						}},
					}},
					RowsIngested: 2,
					RowsSkipped:  1,
				}, nil
			},
		}
		mux := newTestMux(deps)

		Convey("A successful reload returns the ingestion report", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			var resp reloadResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Status, ShouldEqual, "reloaded")
			So(resp.Report, ShouldNotBeNil)
			So(resp.GenerationID, ShouldEqual, "gen-2")
			So(resp.RowsSkipped, ShouldEqual, 1)
			So(resp.Sources, ShouldHaveLength, 1)
			So(resp.Sources[0].RowErrors[0].Value, ShouldEqual, "90-70")

			// Skipped rows and their reasons travel verbatim in the body.
			var raw map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &raw), ShouldBeNil)
			So(raw, ShouldContainKey, "sources")
			So(raw, ShouldContainKey, "rows_skipped")
		})

		Convey("A reload already in flight is a 409", func() {
			deps.reloadFn = func(context.Context) (*ingest.Report, error) {
				return nil, service.ErrReloadInProgress
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
			So(rec.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("A timed out rebuild is a 504", func() {
			deps.reloadFn = func(context.Context) (*ingest.Report, error) {
				return nil, service.ErrTimeout
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
			So(rec.Code, ShouldEqual, http.StatusGatewayTimeout)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the stats route", t, func() {
		deps := &stubDeps{
			statsFn: func(context.Context) (*service.Stats, error) {
				return &service.Stats{GenerationID: "gen-1", Builds: 42, Dimensions: 12}, nil
			},
		}
		mux := newTestMux(deps)

		Convey("GET /stats returns catalog statistics", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			So(rec.Code, ShouldEqual, http.StatusOK)
			var resp service.Stats
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Builds, ShouldEqual, 42)
		})

		Convey("A service not yet started is a 503", func() {
			deps.statsFn = func(context.Context) (*service.Stats, error) {
				return nil, service.ErrNotStarted
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
