// Package filter provides the filter chain applied to speech segments
// before they are enqueued.
package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// BuildChain assembles a chain from the configured filters. Registry
// filters are added in name order so runs are deterministic. Filters
// that need injected dependencies are passed as extras and appended
// after the registry filters; config still decides whether they run.
// Enabled names without a factory or extra are skipped with a warning.
func BuildChain(cfg *config.Config, extra ...Filter) (*Chain, error) {
	factories := GetRegistered()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	chain := NewChain()
	known := make(map[string]bool, len(names)+len(extra))
	for _, name := range names {
		known[name] = true
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f := factories[name]()
		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
	}

	for _, f := range extra {
		known[f.Name()] = true
		if !cfg.IsFilterEnabled(f.Name()) {
			continue
		}
		if err := f.ValidateConfig(cfg.GetFilterSettings(f.Name())); err != nil {
			return nil, errors.Wrapf(err, "filter %s", f.Name())
		}
		chain.Add(f)
	}

	for name := range cfg.Filters {
		if cfg.IsFilterEnabled(name) && !known[name] {
			zlog.Warn().Msgf("unknown filter in config: %s", name)
		}
	}

	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the segment.
func (c *Chain) Execute(ctx context.Context, seg Segment) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, seg)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
