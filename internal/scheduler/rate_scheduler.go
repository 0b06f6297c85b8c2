package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/salyqtech/salyq-backend/internal/app/service"
	"github.com/salyqtech/salyq-backend/pkg/logger"
)

// RateScheduler — ежедневное обновление курсов валют Нацбанка.
type RateScheduler struct {
	cron        *cron.Cron
	rateService service.RateService
	spec        string
}

func NewRateScheduler(rateService service.RateService, spec string) *RateScheduler {
	return &RateScheduler{
		cron:        cron.New(),
		rateService: rateService,
		spec:        spec,
	}
}

func (s *RateScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		logger.Info("Starting scheduled currency rates update", nil)

		if err := s.rateService.UpdateFromFeed(); err != nil {
			logger.Error("Failed to update currency rates from scheduler", err)
			return
		}

		logger.Info("Currency rates updated from scheduler", nil)
	})
	if err != nil {
		logger.Error("Failed to add cron job for currency rates", err)
		return err
	}

	s.cron.Start()
	logger.Info("Currency rate scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

func (s *RateScheduler) Stop() {
	logger.Info("Stopping currency rate scheduler...", nil)
	s.cron.Stop()
}
