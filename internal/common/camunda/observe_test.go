package camunda

import (
	"context"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
)

type nopJobClient struct {
	worker.JobClient
}

func (nopJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (nopJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (nopJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

type recorded struct {
	taskType string
	status   string
}

type fakeRecorder struct {
	processed []recorded
	durations int
}

func (f *fakeRecorder) RecordJobProcessed(_ context.Context, taskType, status string) {
	f.processed = append(f.processed, recorded{taskType, status})
}

func (f *fakeRecorder) RecordJobDuration(context.Context, string, time.Duration, string) {
	f.durations++
}

func TestObserve_RecordsOutcome(t *testing.T) {
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1}}

	tests := []struct {
		name   string
		handle HandlerFunc
		want   string
	}{
		{
			name:   "completed",
			handle: func(c worker.JobClient, _ entities.Job) { c.NewCompleteJobCommand() },
			want:   OutcomeCompleted,
		},
		{
			name:   "failed",
			handle: func(c worker.JobClient, _ entities.Job) { c.NewFailJobCommand() },
			want:   OutcomeFailed,
		},
		{
			name:   "bpmn error",
			handle: func(c worker.JobClient, _ entities.Job) { c.NewThrowErrorCommand() },
			want:   OutcomeError,
		},
		{
			name:   "nothing sent",
			handle: func(worker.JobClient, entities.Job) {},
			want:   OutcomeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			Observe(rec, "check-out-unit", tt.handle)(nopJobClient{}, job)

			assert.Equal(t, []recorded{{"check-out-unit", tt.want}}, rec.processed)
			assert.Equal(t, 1, rec.durations)
		})
	}
}

func TestObserve_NilRecorder(t *testing.T) {
	called := false
	h := Observe(nil, "x", func(worker.JobClient, entities.Job) { called = true })
	h(nopJobClient{}, entities.Job{})
	assert.True(t, called)
}
