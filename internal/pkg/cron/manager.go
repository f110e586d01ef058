package cron

import (
	"Lighthouse/internal/api/config"
	"Lighthouse/internal/job"
	"fmt"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine          *cron.Cron
	reminderCfg     config.ReminderConfig
	reminderSweep   *job.ReminderSweepJob
	cacheJanitorJob *job.CacheJanitorJob
}

func NewCronManager(reminderCfg config.ReminderConfig, reminderSweep *job.ReminderSweepJob, cacheJanitor *job.CacheJanitorJob) *Manager {
	return &Manager{
		engine:          cron.New(cron.WithSeconds()),
		reminderCfg:     reminderCfg,
		reminderSweep:   reminderSweep,
		cacheJanitorJob: cacheJanitor,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	sweepSpec := fmt.Sprintf("@every %s", s.reminderCfg.SweepInterval)
	if _, err := s.engine.AddJob(sweepSpec, s.reminderSweep); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@every 1m", s.cacheJanitorJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
