package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/service"
)

type stubEnricher struct {
	err   error
	calls int
}

func (s *stubEnricher) EnrichReport(context.Context, uuid.UUID) error {
	s.calls++

	return s.err
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *recordingMetrics) RecordJobsEnqueued(context.Context, int64) {}

func (m *recordingMetrics) RecordOutcome(_ context.Context, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outcomes = append(m.outcomes, status)
}

func (m *recordingMetrics) RecordDuration(context.Context, string, time.Duration) {}

func (m *recordingMetrics) SetRiverQueueDepth(int) {}

func TestReportEnrichmentWorker_Work(t *testing.T) {
	args := service.ReportEnrichmentArgs{ReportID: uuid.New()}

	tests := []struct {
		name        string
		err         error
		attempt     int
		wantErr     bool
		wantOutcome string
	}{
		{name: "success", attempt: 1, wantOutcome: "success"},
		{name: "report deleted", err: huberrors.NewNotFoundError("report", "report not found"), attempt: 1, wantOutcome: "skipped"},
		{name: "transient failure retries", err: errors.New("vector store down"), attempt: 1, wantErr: true, wantOutcome: "retry"},
		{name: "last attempt gives up", err: errors.New("vector store down"), attempt: 3, wantOutcome: "failed_final"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher := &stubEnricher{err: tt.err}
			metrics := &recordingMetrics{}
			worker := NewReportEnrichmentWorker(enricher, metrics)
			job := &river.Job[service.ReportEnrichmentArgs]{
				JobRow: &rivertype.JobRow{Attempt: tt.attempt, MaxAttempts: 3},
				Args:   args,
			}

			err := worker.Work(context.Background(), job)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, 1, enricher.calls)
			assert.Equal(t, []string{tt.wantOutcome}, metrics.outcomes)
		})
	}
}

func TestReportEnrichmentWorker_NilMetrics(t *testing.T) {
	worker := NewReportEnrichmentWorker(&stubEnricher{}, nil)
	job := &river.Job[service.ReportEnrichmentArgs]{JobRow: &rivertype.JobRow{Attempt: 1, MaxAttempts: 1}}

	assert.NoError(t, worker.Work(context.Background(), job))
}

func TestReportEnrichmentWorker_Timeout(t *testing.T) {
	worker := NewReportEnrichmentWorker(nil, nil)
	job := &river.Job[service.ReportEnrichmentArgs]{JobRow: &rivertype.JobRow{}}

	assert.Equal(t, 45*time.Second, worker.Timeout(job))
}
