package loader

import (
	"context"

	"dwhpipe/internal/schema"
	"dwhpipe/internal/warehouse"
	"dwhpipe/pkg/errors"
	"dwhpipe/pkg/models"
)

// Loader bulk-copies the raw JSON datasets from object storage into the
// staging tables. The warehouse performs the copy; this component builds
// the command parameters and reports per-table success or failure.
type Loader struct {
	svc     *warehouse.Service
	storage models.Storage
	roleARN string
	region  string
}

// New creates a loader bound to the warehouse service and settings.
func New(svc *warehouse.Service, cfg models.Config) *Loader {
	return &Loader{
		svc:     svc,
		storage: cfg.Storage,
		roleARN: cfg.IAM.RoleARN,
		region:  cfg.AWS.Region,
	}
}

// Specs returns one copy command per staging table: events use the
// jsonpaths mapping document, songs map by key name.
func (l *Loader) Specs() []CopySpec {
	return []CopySpec{
		{
			Table:         schema.StagingEvents.Name,
			Source:        l.storage.LogData,
			CredentialARN: l.roleARN,
			JSONPaths:     l.storage.LogJSONPath,
			Region:        l.region,
		},
		{
			Table:         schema.StagingSongs.Name,
			Source:        l.storage.SongData,
			CredentialARN: l.roleARN,
			JSONPaths:     JSONAuto,
			Region:        l.region,
		},
	}
}

// Run executes every copy in sequence. A copy over an empty prefix loads
// zero rows and succeeds; a statement error aborts the run with table and
// path context. Malformed rows inside the source set are left to the
// warehouse's own load error policy.
func (l *Loader) Run(ctx context.Context) error {
	for _, spec := range l.Specs() {
		if err := spec.Validate(); err != nil {
			return errors.Wrap(err, errors.ErrCodeCopySpecInvalid, "Invalid copy parameters").
				WithContext("table", spec.Table)
		}
		if err := l.svc.Exec(ctx, spec.SQL()); err != nil {
			return errors.LoadError("Bulk copy failed", spec.Table, spec.Source, err)
		}
	}
	return nil
}
