package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	reportEnrichmentKind = "report_enrichment"
	// EnrichmentQueueName is the River queue used for report enrichment jobs.
	EnrichmentQueueName = "enrichment"
)

// EnrichmentInserter inserts enrichment jobs (e.g. River client).
type EnrichmentInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// ReportEnrichmentArgs is the job payload for (re)building the similarity record of one report.
// Uniqueness is by ReportID so a failed inline enrichment and a backfill do not queue the same work twice.
type ReportEnrichmentArgs struct {
	ReportID uuid.UUID `json:"report_id" river:"unique"`
}

// Kind returns the River job kind.
func (ReportEnrichmentArgs) Kind() string { return reportEnrichmentKind }

var _ river.JobArgs = ReportEnrichmentArgs{}
