package config_test

import (
	"testing"
	"time"

	"github.com/okian/hoopdex/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.SourceDir, convey.ShouldEqual, "./builds")
			convey.So(cfg.WatchSources, convey.ShouldBeTrue)
			convey.So(cfg.QueryTimeout, convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.DefaultPageSize, convey.ShouldEqual, 20)
			convey.So(cfg.MaxPageSize, convey.ShouldEqual, 100)
			convey.So(cfg.MinSharedDims, convey.ShouldEqual, 3)
			convey.So(cfg.DeltaNegligible, convey.ShouldEqual, 0.05)
			convey.So(cfg.DeltaMinor, convey.ShouldEqual, 0.2)
		})
	})
}
