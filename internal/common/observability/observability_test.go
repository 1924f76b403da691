package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_Lifecycle(t *testing.T) {
	o, err := New("clinic-inventory-workers-test", "")
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(ctx, "parse-smart-search", "completed")
		o.RecordJobDuration(ctx, "parse-smart-search", 15*time.Millisecond, "completed")
	})

	assert.NoError(t, o.Shutdown(ctx))
}

func TestObservability_NilSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(context.Background(), "x", "failed")
		o.RecordJobDuration(context.Background(), "x", time.Second, "failed")
	})
	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestStartJobSpan_NoopProvider(t *testing.T) {
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, ProcessInstanceKey: 7, BpmnProcessId: "inventory-check"}}

	ctx, span := StartJobSpan(context.Background(), "check-out-unit", job)
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	assert.NotPanics(t, func() { EndSpan(span, errors.New("boom")) })
}
