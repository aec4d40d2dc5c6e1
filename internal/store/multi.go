package store

import (
	"context"

	"codeberg.org/mutker/plasmactl/internal/diag"
)

type multiSink []Sink

// Multi fans one Save out to every sink. Each sink is attempted even when
// an earlier one fails; the first failure is reported.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Save(ctx context.Context, res diag.Result) error {
	var firstErr error
	for _, s := range m {
		if err := s.Save(ctx, res); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (m multiSink) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
