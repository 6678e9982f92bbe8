package research

import (
	"context"
	"errors"
	"fmt"

	"jarvis/internal/logging"
)

// FallbackSearcher tries each backend in order and returns the first
// non-empty result. It fails only when every backend fails.
type FallbackSearcher struct {
	backends []Searcher
}

// NewFallbackSearcher builds a chain. Nil entries are skipped.
func NewFallbackSearcher(backends ...Searcher) *FallbackSearcher {
	f := &FallbackSearcher{}
	for _, b := range backends {
		if b != nil {
			f.backends = append(f.backends, b)
		}
	}
	return f
}

// Search implements Searcher.
func (f *FallbackSearcher) Search(ctx context.Context, q Query) (Results, error) {
	if len(f.backends) == 0 {
		return Results{}, fmt.Errorf("%w: no backends configured", ErrUnavailable)
	}

	var errs []error
	var empty *Results
	for i, b := range f.backends {
		if err := ctx.Err(); err != nil {
			return Results{}, err
		}
		r, err := b.Search(ctx, q)
		if err != nil {
			if errors.Is(err, ErrEmptyQuery) {
				return Results{}, err
			}
			logging.ResearchWarn("Search backend %d failed, trying next: %v", i, err)
			errs = append(errs, err)
			continue
		}
		if !r.Empty() {
			return r, nil
		}
		if empty == nil {
			empty = &r
		}
	}

	if empty != nil {
		return *empty, nil
	}
	return Results{}, errors.Join(errs...)
}
