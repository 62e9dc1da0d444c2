// Package service contains the service layer for the Stockwatch API
package service

import (
	"errors"

	"github.com/nsvirk/stockwatchapi/internal/config"
	"github.com/nsvirk/stockwatchapi/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
)

// CronService runs the optional server-side auto-refresh job.
type CronService struct {
	cfg            *config.Config
	c              *cron.Cron
	refreshService *RefreshService
	publishService *PublishService
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, refreshService *RefreshService, publishService *PublishService) *CronService {
	return &CronService{
		cfg:            cfg,
		c:              cron.New(),
		refreshService: refreshService,
		publishService: publishService,
	}
}

// Start starts the cron service. With no auto-refresh schedule configured
// there is nothing to run.
func (cs *CronService) Start() {
	if cs.cfg.AutoRefreshCron == "" {
		zaplogger.Debug("auto refresh disabled, no cron jobs queued")
		return
	}

	zaplogger.Info("Initializing CronService")
	cs.addScheduledJob("Watchlist AUTO REFRESH Job", cs.autoRefreshJob, cs.cfg.AutoRefreshCron)
	cs.c.Start()
}

// Stop cancels all scheduled jobs.
func (cs *CronService) Stop() {
	cs.c.Stop()
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// autoRefreshJob runs one refresh cycle and publishes the snapshot. A
// simulated fault is an expected outcome here, not an error.
func (cs *CronService) autoRefreshJob() {
	instruments, err := cs.refreshService.RefreshAll()
	if err != nil {
		if errors.Is(err, ErrSimulatedFault) {
			zaplogger.Warn("auto refresh hit fault injection")
		} else {
			zaplogger.Error("auto refresh failed", zaplogger.Fields{"error": err.Error()})
		}
		return
	}
	cs.publishService.PublishSnapshot(instruments)
}
