package sweep

import (
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/plasmactl/internal/errors"
)

// TimeLayout is the wire format of sample timestamps. It is kept for
// compatibility with existing board hosts and stored records.
const TimeLayout = "2006-01-02 15:04:05.000000"

// EncodeFloats joins a float list into the comma-separated wire form.
func EncodeFloats(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	return strings.Join(parts, ",")
}

// DecodeFloats parses a comma-separated float list. Empty tokens (including
// a trailing comma left by an in-progress append) are dropped before parsing.
func DecodeFloats(encoded string) ([]float64, error) {
	errFactory := errors.New()

	var values []float64
	for _, tok := range strings.Split(encoded, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrMalformedTick, err)
		}
		values = append(values, v)
	}

	return values, nil
}

// EncodeTimes joins a timestamp list into the comma-separated wire form.
func EncodeTimes(times []time.Time) string {
	if len(times) == 0 {
		return ""
	}

	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.Format(TimeLayout)
	}

	return strings.Join(parts, ",")
}

// DecodeTimes parses a comma-separated timestamp list, dropping empty tokens.
func DecodeTimes(encoded string) ([]time.Time, error) {
	errFactory := errors.New()

	var times []time.Time
	for _, tok := range strings.Split(encoded, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		t, err := time.Parse(TimeLayout, tok)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrMalformedTick, err)
		}
		times = append(times, t)
	}

	return times, nil
}
