package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeError     = "bpmn_error"
	OutcomeUnknown   = "unknown"
)

// Recorder receives one processed count and one duration per job.
// *observability.Observability satisfies it.
type Recorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// outcomeClient notes which terminal command the handler asked for.
type outcomeClient struct {
	worker.JobClient
	outcome string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = OutcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = OutcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = OutcomeError
	return c.JobClient.NewThrowErrorCommand()
}

// Observe reports every job handled by h to rec, labelled with the outcome
// the handler chose. A nil rec returns h unchanged.
func Observe(rec Recorder, taskType string, h HandlerFunc) HandlerFunc {
	if rec == nil {
		return h
	}
	return func(client worker.JobClient, job entities.Job) {
		oc := &outcomeClient{JobClient: client, outcome: OutcomeUnknown}
		start := time.Now()

		h(oc, job)

		ctx := context.Background()
		rec.RecordJobProcessed(ctx, taskType, oc.outcome)
		rec.RecordJobDuration(ctx, taskType, time.Since(start), oc.outcome)
	}
}
