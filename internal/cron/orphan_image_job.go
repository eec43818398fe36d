package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/storage/gcs"
)

const (
	OrphanImageCleanupName = "orphan-image-cleanup"

	DefaultGracePeriod  = 24 * time.Hour
	DefaultMaxDeletions = 100
)

type objectStore interface {
	ListObjects(ctx context.Context, bucket string) ([]gcs.Object, error)
	DeleteObject(ctx context.Context, bucket, name string) error
}

type imageReferences interface {
	ReferencedImageURLs(ctx context.Context) (map[string]struct{}, error)
}

// OrphanImageReport summarizes one sweep.
type OrphanImageReport struct {
	Deleted             int  `json:"deleted"`
	SkippedReferenced   int  `json:"skippedReferenced"`
	SkippedGracePeriod  int  `json:"skippedGracePeriod"`
	SkippedUnresolvable int  `json:"skippedUnresolvable"`
	Failed              int  `json:"failed"`
	TotalFiles          int  `json:"totalFiles"`
	TotalReferenced     int  `json:"totalReferenced"`
	HitDeletionLimit    bool `json:"hitDeletionLimit"`
	DryRun              bool `json:"dryRun"`
}

type OrphanImageJobParams struct {
	Logger        *logger.Logger
	Store         objectStore
	References    imageReferences
	Bucket        string
	PublicBaseURL string
	GracePeriod   time.Duration
	MaxDeletions  int
	Now           func() time.Time
}

// OrphanImageJob deletes bucket objects no product points at. Objects
// younger than the grace period are always kept so an upload whose product
// has not been saved yet survives.
type OrphanImageJob struct {
	logg         *logger.Logger
	store        objectStore
	refs         imageReferences
	bucket       string
	publicBase   string
	grace        time.Duration
	maxDeletions int
	now          func() time.Time
}

func NewOrphanImageJob(params OrphanImageJobParams) (*OrphanImageJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.References == nil {
		return nil, fmt.Errorf("image references required")
	}
	if strings.TrimSpace(params.PublicBaseURL) == "" {
		return nil, fmt.Errorf("public base url required")
	}
	if params.GracePeriod <= 0 {
		params.GracePeriod = DefaultGracePeriod
	}
	if params.MaxDeletions <= 0 {
		params.MaxDeletions = DefaultMaxDeletions
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &OrphanImageJob{
		logg:         params.Logger,
		store:        params.Store,
		refs:         params.References,
		bucket:       params.Bucket,
		publicBase:   params.PublicBaseURL,
		grace:        params.GracePeriod,
		maxDeletions: params.MaxDeletions,
		now:          params.Now,
	}, nil
}

func (j *OrphanImageJob) Name() string { return OrphanImageCleanupName }

func (j *OrphanImageJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx, false)
	return err
}

// Sweep runs one pass. With dryRun set nothing is deleted and Deleted counts
// what would have been. Delete failures are collected and returned together
// with the report; they do not stop the pass.
func (j *OrphanImageJob) Sweep(ctx context.Context, dryRun bool) (*OrphanImageReport, error) {
	referenced, err := j.refs.ReferencedImageURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect product images: %w", err)
	}
	objects, err := j.store.ListObjects(ctx, j.bucket)
	if err != nil {
		return nil, fmt.Errorf("list stored objects: %w", err)
	}

	report := &OrphanImageReport{
		TotalFiles:      len(objects),
		TotalReferenced: len(referenced),
		DryRun:          dryRun,
	}
	cutoff := j.now().UTC().Add(-j.grace)

	var errs error
	for _, obj := range objects {
		if report.Deleted >= j.maxDeletions {
			break
		}
		if obj.Created.After(cutoff) {
			report.SkippedGracePeriod++
			continue
		}
		url, ok := j.publicURL(obj)
		if !ok {
			report.SkippedUnresolvable++
			continue
		}
		if _, used := referenced[url]; used {
			report.SkippedReferenced++
			continue
		}

		if dryRun {
			report.Deleted++
			continue
		}
		if err := j.store.DeleteObject(ctx, j.bucket, obj.Name); err != nil && !gcs.IsNotFound(err) {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", obj.Name, err))
			continue
		}
		report.Deleted++
	}
	report.HitDeletionLimit = report.Deleted >= j.maxDeletions

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"deleted":              report.Deleted,
		"skipped_referenced":   report.SkippedReferenced,
		"skipped_grace_period": report.SkippedGracePeriod,
		"skipped_unresolvable": report.SkippedUnresolvable,
		"failed":               report.Failed,
		"total_files":          report.TotalFiles,
		"total_referenced":     report.TotalReferenced,
		"hit_deletion_limit":   report.HitDeletionLimit,
		"dry_run":              dryRun,
	})
	if errs != nil {
		j.logg.Error(logCtx, "orphan image sweep finished with failures", errs)
		return report, errs
	}
	j.logg.Info(logCtx, "orphan image sweep complete")
	return report, nil
}

// publicURL is unresolvable for directory placeholders and empty names.
func (j *OrphanImageJob) publicURL(obj gcs.Object) (string, bool) {
	name := strings.TrimSpace(obj.Name)
	if name == "" || strings.HasSuffix(name, "/") {
		return "", false
	}
	return gcs.PublicURL(j.publicBase, name), true
}
