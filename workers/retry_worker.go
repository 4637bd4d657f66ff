package workers

import (
	"context"
	"sync"
	"time"

	"aegis/repositories"
	"aegis/services"

	"github.com/sirupsen/logrus"
)

const retryCandidateBatch = 50

// RetryWorker periodically sweeps active emergencies that still carry
// failed or pending notifications and re-drives the retry path for them.
// Per-notification retry budgets are enforced by the store, so overlapping
// sweeps cannot over-retry.
type RetryWorker struct {
	emergencyRepo       *repositories.EmergencyRepository
	notificationService *services.NotificationService
	interval            time.Duration

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRetryWorker(emergencyRepo *repositories.EmergencyRepository, notificationService *services.NotificationService, interval time.Duration) *RetryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RetryWorker{
		emergencyRepo:       emergencyRepo,
		notificationService: notificationService,
		interval:            interval,
		ctx:                 ctx,
		cancel:              cancel,
	}
}

// Start launches the sweep loop.
func (rw *RetryWorker) Start() {
	rw.mutex.Lock()
	if rw.isRunning {
		rw.mutex.Unlock()
		return
	}
	rw.isRunning = true
	rw.mutex.Unlock()

	rw.wg.Add(1)
	go rw.run()

	logrus.Infof("Notification retry worker started (interval %s)", rw.interval)
}

// Stop shuts the worker down and waits for an in-flight sweep to finish.
func (rw *RetryWorker) Stop() {
	rw.mutex.Lock()
	if !rw.isRunning {
		rw.mutex.Unlock()
		return
	}
	rw.isRunning = false
	rw.mutex.Unlock()

	rw.cancel()
	rw.wg.Wait()

	logrus.Info("Notification retry worker stopped")
}

func (rw *RetryWorker) run() {
	defer rw.wg.Done()

	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rw.sweep()
		case <-rw.ctx.Done():
			return
		}
	}
}

func (rw *RetryWorker) sweep() {
	ctx, cancel := context.WithTimeout(rw.ctx, rw.interval)
	defer cancel()

	ids, err := rw.emergencyRepo.FindRetryCandidates(ctx, retryCandidateBatch)
	if err != nil {
		logrus.Errorf("Retry sweep failed to load candidates: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	logrus.Debugf("Retry sweep found %d emergencies with retryable notifications", len(ids))

	for _, id := range ids {
		summary, err := rw.notificationService.Retry(ctx, id)
		if err != nil {
			logrus.Errorf("Retry sweep failed for emergency %s: %v", id, err)
			continue
		}
		if summary.TotalRetried > 0 {
			logrus.Infof("Retry sweep for emergency %s: %d retried, %d successful, %d still failed",
				id, summary.TotalRetried, summary.Successful, summary.StillFailed)
		}
	}
}
