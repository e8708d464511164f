package sources

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/syncals/syncals/pkg/constants"
	pkgerrors "github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/logging"
)

// Options configures FetchAll.
type Options struct {
	// Timeout bounds each provider's Fetch. Zero disables the bound.
	Timeout time.Duration
}

// Option is a function that configures Options.
type Option func(*Options)

// WithTimeout bounds each provider's Fetch.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// NewOptions applies opts on top of the defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{Timeout: constants.SourceFetchTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FetchAll fetches from every provider concurrently. Records are returned
// in provider order. Failed providers contribute nothing and their errors
// are joined into the returned error, so callers get partial results.
func FetchAll(ctx context.Context, providers []Provider, rng events.Range, opts ...Option) ([]events.Record, error) {
	options := NewOptions(opts...)
	logger := logging.FromContext(ctx)

	results := make([][]events.Record, len(providers))
	errs := make([]error, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()

			fetchCtx := ctx
			if options.Timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, options.Timeout)
				defer cancel()
			}

			logger.Info().Str("source", p.ID().String()).Msg("Fetching")
			recs, err := p.Fetch(fetchCtx, rng)
			if err != nil {
				logger.Warn().Err(err).Str("source", p.ID().String()).Msg("Source fetch failed")
				errs[i] = pkgerrors.NewProviderError(p.ID().String(), "fetch", err)
				return
			}
			logger.Debug().Str("source", p.ID().String()).Int("records", len(recs)).Msg("Fetched")
			results[i] = recs
		}(i, p)
	}
	wg.Wait()

	var all []events.Record
	for _, recs := range results {
		all = append(all, recs...)
	}
	return all, errors.Join(errs...)
}
