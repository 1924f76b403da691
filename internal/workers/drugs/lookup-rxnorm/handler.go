// internal/workers/drugs/lookup-rxnorm/handler.go
package lookuprxnorm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"clinic-inventory-workers/internal/common/database"
	apperrors "clinic-inventory-workers/internal/common/errors"
	apphttp "clinic-inventory-workers/internal/common/http"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/metrics"
	"clinic-inventory-workers/internal/common/observability"
	"clinic-inventory-workers/internal/models"
)

const (
	TaskType = "lookup-rxnorm"

	minSearchTermLength = 3
	cacheKeyPrefix      = "rxnorm:search:"
)

var errNoNDC = errors.New("concept has no NDC")

type Handler struct {
	config       *Config
	rxnav        *rxnavClient
	redis        *redis.Client
	pool         *ants.Pool
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewHandler wires the worker. The pool bounds how many candidates are
// resolved at once and is owned by the caller; rdb may be nil.
func NewHandler(config *Config, httpClient *apphttp.Client, rdb *redis.Client, pool *ants.Pool, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		rxnav:        newRxnavClient(httpClient, config.BaseURL),
		redis:        rdb,
		pool:         pool,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := observability.StartJobSpan(ctx, TaskType, job)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = h.config.Validator.Validate(TaskType, job.Variables); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	var input Input
	if err = json.Unmarshal([]byte(job.Variables), &input); err != nil {
		err = apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}
	term := strings.TrimSpace(input.SearchTerm)
	if len(term) < minSearchTermLength {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("searchTerm must be at least %d characters long", minSearchTermLength))
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = h.config.MaxResults
	}
	if maxResults > candidateLimit {
		maxResults = candidateLimit
	}

	key := cacheKey(term, maxResults)
	var cached []models.RxNormDrug
	found, err := database.GetJSON(ctx, h.redis, key, &cached)
	if err != nil {
		h.logger.Warn("rxnorm cache read failed", map[string]interface{}{"error": err})
	}
	metrics.RecordCacheLookup(TaskType, found)
	if found {
		return &Output{SearchTerm: term, Results: cached, Count: len(cached), Cached: true}, nil
	}

	candidates, err := h.rxnav.approximateTerm(ctx, term)
	if err != nil {
		return nil, h.mapError(ctx, term, err)
	}
	candidates = firstDistinct(candidates, maxResults)

	results, transient := h.resolveCandidates(ctx, candidates)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, apperrors.NewRxNormTimeoutError(term)
	}

	// A partial answer is returned but not cached, so the next lookup retries.
	if transient == 0 {
		if err := database.SetJSON(ctx, h.redis, key, results, h.config.CacheTTL); err != nil {
			h.logger.Warn("rxnorm cache write failed", map[string]interface{}{"error": err})
		}
	}

	h.logger.Info("rxnorm lookup completed", map[string]interface{}{
		"searchTerm": term,
		"candidates": len(candidates),
		"results":    len(results),
		"transient":  transient,
	})
	return &Output{SearchTerm: term, Results: results, Count: len(results)}, nil
}

// resolveCandidates fetches details for every candidate on the pool and
// keeps candidate order. Candidates that fail or have no NDC are dropped;
// transient counts the ones dropped for a reason that may clear on retry.
func (h *Handler) resolveCandidates(ctx context.Context, candidates []candidate) (out []models.RxNormDrug, transient int) {
	resolved := make([]*models.RxNormDrug, len(candidates))
	var failed int32

	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			drug, err := h.resolveCandidate(ctx, c)
			if err != nil {
				if isTransient(err) {
					atomic.AddInt32(&failed, 1)
				}
				h.logger.Debug("skipping rxnorm candidate", map[string]interface{}{
					"rxcui": c.RxCUI,
					"error": err,
				})
				return
			}
			resolved[i] = drug
		}
		if err := h.pool.Submit(task); err != nil {
			wg.Done()
			atomic.AddInt32(&failed, 1)
			h.logger.Warn("rxnorm candidate not scheduled", map[string]interface{}{
				"rxcui": c.RxCUI,
				"error": err,
			})
		}
	}
	wg.Wait()

	out = make([]models.RxNormDrug, 0, len(resolved))
	for _, d := range resolved {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, int(atomic.LoadInt32(&failed))
}

// isTransient reports whether a candidate failure may not repeat: transport
// errors, 5xx and 429. A concept without NDCs or a 4xx answer is final.
func isTransient(err error) bool {
	if errors.Is(err, errNoNDC) {
		return false
	}
	var status *apphttp.StatusError
	if errors.As(err, &status) {
		return status.StatusCode >= http.StatusInternalServerError ||
			status.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// resolveCandidate fetches properties and NDCs concurrently.
func (h *Handler) resolveCandidate(ctx context.Context, c candidate) (*models.RxNormDrug, error) {
	var (
		props map[string]string
		ndcs  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		props, err = h.rxnav.properties(gctx, c.RxCUI)
		return err
	})
	g.Go(func() error {
		var err error
		ndcs, err = h.rxnav.ndcs(gctx, c.RxCUI)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	drug, ok := toDrug(c, props, ndcs)
	if !ok {
		return nil, errNoNDC
	}
	return &drug, nil
}

func (h *Handler) mapError(ctx context.Context, term string, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewRxNormTimeoutError(term)
	}
	return apperrors.NewRxNormAPIError(err)
}

// firstDistinct returns up to n candidates, skipping repeated concepts.
func firstDistinct(candidates []candidate, n int) []candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]candidate, 0, n)
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		if c.RxCUI == "" || seen[c.RxCUI] {
			continue
		}
		seen[c.RxCUI] = true
		out = append(out, c)
	}
	return out
}

func cacheKey(term string, maxResults int) string {
	return fmt.Sprintf("%s%s:%d", cacheKeyPrefix, strings.ToLower(term), maxResults)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
