package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// OrderExpirer cancels and restocks unconfirmed orders.
type OrderExpirer interface {
	ExpireStaleOrders(ctx context.Context, olderThan time.Duration) (int, error)
}

// OrderExpiryScheduler periodically cancels INITIATED orders older than a window
type OrderExpiryScheduler struct {
	cron      *cron.Cron
	expirer   OrderExpirer
	schedule  string
	olderThan time.Duration
	timeout   time.Duration

	// guards against overlapping runs when a sweep outlasts the interval
	running sync.Mutex
}

func NewOrderExpiryScheduler(expirer OrderExpirer, schedule string, olderThan time.Duration) *OrderExpiryScheduler {
	return &OrderExpiryScheduler{
		cron:      cron.New(),
		expirer:   expirer,
		schedule:  schedule,
		olderThan: olderThan,
		timeout:   5 * time.Minute,
	}
}

// Start registers the sweep and starts the cron runner.
func (s *OrderExpiryScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runScheduled); err != nil {
		logger.Error("Failed to add cron job for order expiry", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Order expiry scheduler started", map[string]interface{}{
		"schedule":   s.schedule,
		"older_than": s.olderThan.String(),
	})
	return nil
}

func (s *OrderExpiryScheduler) runScheduled() {
	if !s.running.TryLock() {
		logger.Warn("Previous order expiry run still in progress, skipping", nil)
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs a single sweep.
func (s *OrderExpiryScheduler) RunOnce(ctx context.Context) (int, error) {
	logger.Info("Starting scheduled order expiry", nil)

	expired, err := s.expirer.ExpireStaleOrders(ctx, s.olderThan)
	if err != nil {
		logger.Error("Order expiry run failed", err, map[string]interface{}{
			"expired": expired,
		})
		return expired, err
	}

	logger.Info("Order expiry run finished", map[string]interface{}{
		"expired": expired,
	})
	return expired, nil
}

// Stop stops the runner and waits for a running sweep to finish.
func (s *OrderExpiryScheduler) Stop() {
	logger.Info("Stopping order expiry scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Order expiry scheduler stopped", nil)
}
