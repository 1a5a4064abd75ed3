package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/repositories"
)

// Worker drains the analysis queue with a bounded pool and periodically
// re-enqueues analyses stuck in queued (e.g. after a restart).
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(analysisID uuid.UUID)
}

type worker struct {
	analysisRepo repositories.AnalysisRepository
	analyzer     AnalyzerService
	jobQueue     chan uuid.UUID
	concurrency  int
	wg           sync.WaitGroup
	stopChan     chan struct{}
	logger       *zap.Logger
}

func NewWorker(
	analysisRepo repositories.AnalysisRepository,
	analyzer AnalyzerService,
	concurrency int,
	logger *zap.Logger,
) Worker {
	return &worker{
		analysisRepo: analysisRepo,
		analyzer:     analyzer,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		stopChan:     make(chan struct{}),
		logger:       logger,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.logger.Info("🚀 starting analysis workers", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.logger.Info("🛑 stopping workers")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("✅ workers stopped")
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(analysisID uuid.UUID) {
	select {
	case w.jobQueue <- analysisID:
		w.logger.Info("📥 analysis enqueued", zap.String("analysis_id", analysisID.String()))
	case <-w.stopChan:
		w.logger.Warn("worker stopped, cannot enqueue analysis",
			zap.String("analysis_id", analysisID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("worker stopped", zap.Int("worker_id", workerID))
			return
		case analysisID := <-w.jobQueue:
			claimed, err := w.analysisRepo.ClaimJob(analysisID)
			if err != nil {
				w.logger.Warn("failed to claim analysis",
					zap.Int("worker_id", workerID),
					zap.String("analysis_id", analysisID.String()),
					zap.Error(err))
				continue
			}
			if !claimed {
				// Duplicate enqueue from the pending-jobs poller, or a job
				// another worker already took.
				continue
			}

			w.logger.Info("👷 worker picked up analysis",
				zap.Int("worker_id", workerID),
				zap.String("analysis_id", analysisID.String()))

			if err := w.analyzer.RunAnalysis(ctx, analysisID); err != nil {
				w.logger.Error("analysis run failed",
					zap.Int("worker_id", workerID),
					zap.String("analysis_id", analysisID.String()),
					zap.Error(err))
			}
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			pending, err := w.analysisRepo.FindPendingJobs(10)
			if err != nil {
				w.logger.Warn("failed to fetch pending analyses", zap.Error(err))
				continue
			}

			for _, job := range pending {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
