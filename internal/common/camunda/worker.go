package camunda

import (
	"time"

	"clinic-inventory-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// HandlerFunc is the signature every task handler's Handle method has.
type HandlerFunc func(client worker.JobClient, job entities.Job)

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// CamundaWorker owns one job subscription.
type CamundaWorker struct {
	client  zbc.Client
	opts    WorkerOptions
	handler HandlerFunc
	worker  worker.JobWorker
	logger  *zap.Logger
}

func NewWorker(client zbc.Client, opts WorkerOptions, handler HandlerFunc, logger *zap.Logger) *CamundaWorker {
	return &CamundaWorker{
		client:  client,
		opts:    opts,
		handler: Instrument(opts.TaskType, handler),
		logger:  logger.With(zap.String("taskType", opts.TaskType)),
	}
}

// Start opens the subscription. The broker lock timeout is the handler
// timeout plus a grace period so a job is never handed out twice while its
// handler is still inside its own deadline.
func (w *CamundaWorker) Start() {
	w.worker = w.client.NewJobWorker().
		JobType(w.opts.TaskType).
		Handler(worker.JobHandler(w.handler)).
		MaxJobsActive(w.opts.MaxJobsActive).
		Timeout(w.opts.Timeout + 5*time.Second).
		Name(w.opts.TaskType).
		Open()

	w.logger.Info("worker started",
		zap.Int("maxJobsActive", w.opts.MaxJobsActive),
		zap.Duration("timeout", w.opts.Timeout),
	)
}

// Stop closes the subscription and waits for in-flight jobs. The shared
// Zeebe client stays open.
func (w *CamundaWorker) Stop() {
	if w.worker == nil {
		return
	}
	w.logger.Info("stopping worker")
	w.worker.Close()
	w.worker.AwaitClose()
}

// Instrument records the active-job gauge and duration histogram around h.
func Instrument(taskType string, h HandlerFunc) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		defer func() {
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		}()

		h(client, job)
	}
}
