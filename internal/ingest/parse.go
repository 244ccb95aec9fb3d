package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/hoopdex/internal/domain/model"
)

// Unit conversion constants.
const (
	cmPerInch   = 2.54
	lbsPerKg    = 2.2046226218
	cmThreshold = 100 // height tokens above this are centimeters
	kgThreshold = 90  // weight tokens below this are kilograms
)

var (
	scalarRe   = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)
	intervalRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)$`)
	feetInchRe = regexp.MustCompile(`(\d+)\s*'\s*(\d+)`)
)

// ParseCell parses an attribute cell: either a bare integer/decimal or a
// hyphen-delimited closed interval like "75-99". Anything else is a row
// error for the caller to record.
func ParseCell(raw string) (model.Cell, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.Cell{}, ErrEmptyCell
	}

	if scalarRe.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Cell{}, fmt.Errorf("%q: %w", raw, ErrUnparsableNumber)
		}
		return model.Scalar(v), nil
	}

	if m := intervalRe.FindStringSubmatch(s); m != nil {
		low, err1 := strconv.ParseFloat(m[1], 64)
		high, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return model.Cell{}, fmt.Errorf("%q: %w", raw, ErrUnparsableNumber)
		}
		if low > high {
			return model.Cell{}, fmt.Errorf("%q: %w", raw, ErrMalformedInterval)
		}
		return model.Interval(low, high), nil
	}

	return model.Cell{}, fmt.Errorf("%q: %w", raw, ErrUnparsableNumber)
}

// ParseHeight parses a height cell into inches. Sources express heights as
// feet/inches (`6'11"`), centimeters (tokens above 100), bare inches, or
// ranges of any of those.
func ParseHeight(raw string) (model.Cell, error) {
	s := normalizeSeparators(raw)
	if s == "" {
		return model.Cell{}, ErrEmptyCell
	}

	if feetInchRe.MatchString(s) {
		return parseFeetInches(s)
	}

	cell, err := parseNumericRange(s)
	if err != nil {
		return model.Cell{}, err
	}
	// Tokens above the threshold are centimeters.
	if cell.Low > cmThreshold || cell.High > cmThreshold {
		cell.Low /= cmPerInch
		cell.High /= cmPerInch
	}
	return cell, nil
}

// ParseWeight parses a weight cell into pounds. Tokens below the threshold
// are kilograms and converted.
func ParseWeight(raw string) (model.Cell, error) {
	s := normalizeSeparators(raw)
	if s == "" {
		return model.Cell{}, ErrEmptyCell
	}

	cell, err := parseNumericRange(s)
	if err != nil {
		return model.Cell{}, err
	}
	if cell.High < kgThreshold {
		cell.Low *= lbsPerKg
		cell.High *= lbsPerKg
	}
	return cell, nil
}

// normalizeSeparators folds unicode dashes and "to" range separators into
// a plain hyphen.
func normalizeSeparators(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	s = strings.ReplaceAll(s, " to ", "-")
	return s
}

// parseFeetInches handles `6'11"` and `6'10"-7'0"` shapes, returning inches.
func parseFeetInches(s string) (model.Cell, error) {
	matches := feetInchRe.FindAllStringSubmatch(s, 2)
	vals := make([]float64, 0, 2)
	for _, m := range matches {
		ft, err1 := strconv.Atoi(m[1])
		in, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return model.Cell{}, fmt.Errorf("%q: %w", s, ErrUnparsableNumber)
		}
		vals = append(vals, float64(ft*12+in))
	}
	switch len(vals) {
	case 1:
		return model.Scalar(vals[0]), nil
	case 2:
		if vals[0] > vals[1] {
			return model.Cell{}, fmt.Errorf("%q: %w", s, ErrMalformedInterval)
		}
		return model.Interval(vals[0], vals[1]), nil
	default:
		return model.Cell{}, fmt.Errorf("%q: %w", s, ErrUnparsableNumber)
	}
}

// parseNumericRange parses "200" or "200-220" without unit interpretation.
func parseNumericRange(s string) (model.Cell, error) {
	if scalarRe.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Cell{}, fmt.Errorf("%q: %w", s, ErrUnparsableNumber)
		}
		return model.Scalar(v), nil
	}
	if m := intervalRe.FindStringSubmatch(s); m != nil {
		low, err1 := strconv.ParseFloat(m[1], 64)
		high, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return model.Cell{}, fmt.Errorf("%q: %w", s, ErrUnparsableNumber)
		}
		if low > high {
			return model.Cell{}, fmt.Errorf("%q: %w", s, ErrMalformedInterval)
		}
		return model.Interval(low, high), nil
	}
	return model.Cell{}, fmt.Errorf("%q: %w", s, ErrUnparsableNumber)
}

// ParseTags splits a free-text playstyle cell into individual tags.
func ParseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
