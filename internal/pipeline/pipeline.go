package pipeline

import (
	"context"
	"fmt"

	"dwhpipe/internal/loader"
	"dwhpipe/internal/transform"
	"dwhpipe/internal/ui"
	"dwhpipe/internal/warehouse"
	"dwhpipe/pkg/models"
)

// Options tune a single pipeline run.
type Options struct {
	// SkipReset keeps the current schema and data instead of dropping
	// and recreating every table first.
	SkipReset bool
	// Lister enables the storage preflight when set.
	Lister loader.ObjectLister
}

// Pipeline runs the batch stages in order: schema reset, storage
// preflight, bulk load, transform. Each stage is synchronous and binary —
// it completes or the run aborts.
type Pipeline struct {
	svc         *warehouse.Service
	loader      *loader.Loader
	transformer *transform.Transformer
	opts        Options
}

// New assembles a pipeline over an already connected warehouse service.
func New(svc *warehouse.Service, cfg models.Config, opts Options) *Pipeline {
	return &Pipeline{
		svc:         svc,
		loader:      loader.New(svc, cfg),
		transformer: transform.New(svc),
		opts:        opts,
	}
}

// Run executes the stages. There is no partial-success reporting: the
// first error aborts the run.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.opts.SkipReset {
		ui.ShowStage("Resetting schema")
		if err := p.svc.ResetTables(ctx); err != nil {
			return err
		}
	}

	if p.opts.Lister != nil {
		ui.ShowStage("Checking source prefixes")
		reports, err := p.loader.Preflight(ctx, p.opts.Lister)
		if err != nil {
			return err
		}
		for _, r := range reports {
			if r.Objects == 0 {
				ui.ShowWarning(fmt.Sprintf("%s holds no objects; copy will load zero rows", r.Prefix))
			} else {
				ui.ShowInfo(fmt.Sprintf("%s: %d objects", r.Prefix, r.Objects))
			}
		}
	}

	ui.ShowStage("Loading staging tables")
	if err := p.loader.Run(ctx); err != nil {
		return err
	}

	ui.ShowStage("Transforming into star schema")
	if err := p.transformer.Run(ctx); err != nil {
		return err
	}

	ui.ShowSuccess("Pipeline completed")
	return nil
}
