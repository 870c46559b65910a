package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	job := &rivertype.JobRow{ID: 7, Kind: "report_enrichment", Queue: "enrichment", Attempt: 3, MaxAttempts: 3}

	t.Run("error leaves retry to river", func(t *testing.T) {
		h := NewErrorHandler(nil)

		assert.Nil(t, h.HandleError(context.Background(), job, errors.New("boom")))
	})

	t.Run("panic is counted", func(t *testing.T) {
		metrics := &recordingMetrics{}
		h := NewErrorHandler(metrics)

		assert.Nil(t, h.HandlePanic(context.Background(), job, "nil map", "trace"))
		assert.Equal(t, []string{"panic"}, metrics.outcomes)
	})
}
