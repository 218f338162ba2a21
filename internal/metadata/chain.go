package metadata

import (
	"context"

	"github.com/photoscale/photoscale/internal/errors"
)

// Source is one structured metadata reader in the extraction chain.
type Source interface {
	Name() string
	Extract(ctx context.Context, data []byte, path string) (*StructuredMetadata, error)
}

// ChainResult is the output of a chain run: the accepted metadata, the name
// of the source that produced it and the failures of the sources tried before.
type ChainResult struct {
	Metadata *StructuredMetadata
	Source   string
	Failures map[string]error
}

// Chain tries sources in order and accepts the first result carrying a
// make. When no source reports a make, the first non-empty result is kept so
// GPS or dimensions are not lost.
type Chain struct {
	sources []Source
}

// NewChain builds a chain over sources, skipping nil entries.
func NewChain(sources ...Source) *Chain {
	c := &Chain{}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Sources returns the stage names in order.
func (c *Chain) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Run executes the chain. It only fails on context cancellation; a chain in
// which every source failed returns an empty ChainResult.
func (c *Chain) Run(ctx context.Context, data []byte, path string) (ChainResult, error) {
	res := ChainResult{Failures: make(map[string]error)}
	var partial *StructuredMetadata
	var partialSource string

	for _, s := range c.sources {
		if err := ctx.Err(); err != nil {
			return res, errors.New(err).
				Component("metadata").
				Category(errors.CategoryCancellation).
				Context("stage", s.Name()).
				Build()
		}

		md, err := s.Extract(ctx, data, path)
		if err != nil {
			res.Failures[s.Name()] = err
			continue
		}
		if md.Empty() {
			continue
		}
		if md.Make != "" {
			res.Metadata = md
			res.Source = s.Name()
			return res, nil
		}
		if partial == nil {
			partial, partialSource = md, s.Name()
		}
	}

	res.Metadata = partial
	res.Source = partialSource
	return res, nil
}
