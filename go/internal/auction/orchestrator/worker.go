package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Run starts the worker pool and blocks until ctx is cancelled. Pending
// countdowns are stopped on shutdown.
func (s *Scheduler) Run(ctx context.Context, handler TimeoutHandler) error {
	log.Info().
		Str("instance", s.instanceID).
		Int("workers", s.numWorkers).
		Msg("bid countdown scheduler started")

	var wg sync.WaitGroup
	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i, handler)
	}

	<-ctx.Done()
	log.Info().Str("instance", s.instanceID).Msg("scheduler shutdown requested")

	s.once.Do(func() { close(s.stopCh) })
	s.mu.Lock()
	for auctionID := range s.timers {
		log.Debug().Str("auction_id", auctionID.String()).Msg("cancelled countdown on shutdown")
	}
	s.timers = make(map[uuid.UUID]*pendingTimer)
	s.mu.Unlock()

	wg.Wait()
	log.Info().Str("instance", s.instanceID).Msg("all scheduler workers shut down")
	return nil
}

// worker settles expired countdowns from the work channel
func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int, handler TimeoutHandler) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.workCh:
			log.Info().
				Str("auction_id", job.auctionID.String()).
				Uint64("epoch", job.epoch).
				Str("instance", s.instanceID).
				Int("worker_id", workerID).
				Msg("worker handling bid timeout")

			if err := handler.HandleBidTimeout(ctx, job.auctionID, job.epoch); err != nil {
				log.Error().
					Err(err).
					Str("auction_id", job.auctionID.String()).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("bid timeout handling failed")
			}
		}
	}
}
