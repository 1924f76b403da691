package main

import (
	"database/sql"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	awsclients "clinic-inventory-workers/internal/common/aws"
	"clinic-inventory-workers/internal/common/camunda"
	"clinic-inventory-workers/internal/common/config"
	apphttp "clinic-inventory-workers/internal/common/http"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/validation"

	// Drugs
	lr "clinic-inventory-workers/internal/workers/drugs/lookup-rxnorm"
	sdi "clinic-inventory-workers/internal/workers/drugs/search-drug-index"

	// Inventory
	ciu "clinic-inventory-workers/internal/workers/inventory/check-in-unit"
	cou "clinic-inventory-workers/internal/workers/inventory/check-out-unit"
	qi "clinic-inventory-workers/internal/workers/inventory/query-inventory"
	ut "clinic-inventory-workers/internal/workers/inventory/update-transaction"
	uu "clinic-inventory-workers/internal/workers/inventory/update-unit"

	// Notifications
	sea "clinic-inventory-workers/internal/workers/notifications/send-expiry-alert"

	// Search
	gss "clinic-inventory-workers/internal/workers/search/get-search-suggestions"
	pss "clinic-inventory-workers/internal/workers/search/parse-smart-search"
)

const alertTaskType = sea.TaskType

// workerDeps is everything a handler constructor may need.
type workerDeps struct {
	cfg       *config.Config
	log       logger.Logger
	validator *validation.Validator

	db   *sql.DB
	es   *elasticsearch.Client
	rdb  *redis.Client
	ses  awsclients.SESAPI
	sns  awsclients.SNSAPI
	pool *ants.Pool
}

// registerWorkers builds a handler for every enabled task type. Workers are
// returned unstarted.
func registerWorkers(client zbc.Client, d *workerDeps, rec camunda.Recorder, log *zap.Logger) []*camunda.CamundaWorker {
	cfg := d.cfg
	var workers []*camunda.CamundaWorker

	add := func(taskType string, h camunda.HandlerFunc) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			log.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.NewWorker(client, camunda.WorkerOptions{
			TaskType:      taskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, camunda.Observe(rec, taskType, h), log))
	}
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	// --- Search ---
	{
		c := pss.LoadConfig()
		c.Timeout = timeout(pss.TaskType)
		c.Validator = d.validator
		add(pss.TaskType, pss.NewHandler(c, d.log).Handle)
	}
	{
		c := gss.LoadConfig()
		c.Timeout = timeout(gss.TaskType)
		c.Validator = d.validator
		add(gss.TaskType, gss.NewHandler(c, d.log).Handle)
	}

	// --- Inventory ---
	{
		c := qi.LoadConfig()
		c.Timeout = timeout(qi.TaskType)
		c.CacheTTL = config.GetSeconds(cfg.Search.CacheTTL)
		c.DefaultPageSize = cfg.Search.DefaultPageSize
		c.MaxPageSize = cfg.Search.MaxPageSize
		c.Validator = d.validator
		add(qi.TaskType, qi.NewHandler(c, d.db, d.rdb, d.log).Handle)
	}
	{
		c := ciu.LoadConfig()
		c.Timeout = timeout(ciu.TaskType)
		c.Validator = d.validator
		add(ciu.TaskType, ciu.NewHandler(c, d.db, d.log).Handle)
	}
	{
		c := cou.LoadConfig()
		c.Timeout = timeout(cou.TaskType)
		c.Validator = d.validator
		add(cou.TaskType, cou.NewHandler(c, d.db, d.log).Handle)
	}
	{
		c := uu.LoadConfig()
		c.Timeout = timeout(uu.TaskType)
		c.Validator = d.validator
		add(uu.TaskType, uu.NewHandler(c, d.db, d.log).Handle)
	}
	{
		c := ut.LoadConfig()
		c.Timeout = timeout(ut.TaskType)
		c.Validator = d.validator
		add(ut.TaskType, ut.NewHandler(c, d.db, d.log).Handle)
	}

	// --- Drugs ---
	{
		c := sdi.LoadConfig()
		c.Timeout = timeout(sdi.TaskType)
		c.IndexName = cfg.Search.DrugIndex
		c.Validator = d.validator
		add(sdi.TaskType, sdi.NewHandler(c, d.es, d.log).Handle)
	}
	{
		rx := cfg.APIs.RxNorm
		c := lr.LoadConfig()
		c.Timeout = timeout(lr.TaskType)
		c.BaseURL = rx.BaseURL
		c.MaxResults = rx.MaxResults
		c.CacheTTL = config.GetSeconds(rx.CacheTTL)
		c.Validator = d.validator
		httpClient := apphttp.NewClient(config.GetDuration(rx.Timeout))
		add(lr.TaskType, lr.NewHandler(c, httpClient, d.rdb, d.pool, d.log).Handle)
	}

	// --- Notifications ---
	{
		n := cfg.Notifications
		c := sea.LoadConfig()
		c.Timeout = timeout(sea.TaskType)
		c.EmailEnabled = n.Email.Enabled
		c.FromEmail = n.Email.FromEmail
		c.SMSEnabled = n.SMS.Enabled
		c.SenderID = n.SMS.SenderID
		c.Validator = d.validator
		add(sea.TaskType, sea.NewHandler(c, d.db, d.ses, d.sns, d.log).Handle)
	}

	return workers
}
