// Package orchestrator runs per-auction bid countdowns on one-shot timers and
// hands expirations to a worker pool.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TimeoutHandler settles an auction whose countdown expired.
type TimeoutHandler interface {
	HandleBidTimeout(ctx context.Context, auctionID uuid.UUID, epoch uint64) error
}

// TimeoutHandlerFunc adapts a function to TimeoutHandler.
type TimeoutHandlerFunc func(ctx context.Context, auctionID uuid.UUID, epoch uint64) error

func (f TimeoutHandlerFunc) HandleBidTimeout(ctx context.Context, auctionID uuid.UUID, epoch uint64) error {
	return f(ctx, auctionID, epoch)
}

type expiry struct {
	auctionID uuid.UUID
	epoch     uint64
}

type pendingTimer struct {
	timer  clockwork.Timer
	epoch  uint64
	cancel chan struct{}
}

// stop halts the timer and releases its goroutine. Must hold Scheduler.mu.
func (p *pendingTimer) stop() {
	p.timer.Stop()
	close(p.cancel)
}

// Scheduler keeps at most one pending countdown per auction.
type Scheduler struct {
	clock      clockwork.Clock
	instanceID string
	numWorkers int

	workCh chan expiry
	stopCh chan struct{}
	once   sync.Once

	mu     sync.Mutex
	timers map[uuid.UUID]*pendingTimer
}

// Config tunes the scheduler.
type Config struct {
	Workers int
	Clock   clockwork.Clock
}

// NewScheduler creates a scheduler. Expirations are queued until Run starts
// the worker pool.
func NewScheduler(config Config) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:      config.Clock,
		instanceID: uuid.New().String()[:8],
		numWorkers: config.Workers,
		workCh:     make(chan expiry, config.Workers*64),
		stopCh:     make(chan struct{}),
		timers:     make(map[uuid.UUID]*pendingTimer),
	}
}

// Schedule starts a countdown for the auction, replacing any pending one.
func (s *Scheduler) Schedule(auctionID uuid.UUID, epoch uint64, after time.Duration) {
	if after <= 0 {
		return
	}
	p := &pendingTimer{
		timer:  s.clock.NewTimer(after),
		epoch:  epoch,
		cancel: make(chan struct{}),
	}
	s.replaceTimer(auctionID, p)

	go func(id uuid.UUID, p *pendingTimer) {
		select {
		case <-p.timer.Chan():
			select {
			case <-p.cancel:
				return
			default:
			}
			s.removeTimer(id, p)
			s.enqueue(expiry{auctionID: id, epoch: p.epoch})
		case <-p.cancel:
			stopAndDrainTimer(p.timer)
		case <-s.stopCh:
			stopAndDrainTimer(p.timer)
		}
	}(auctionID, p)

	log.Debug().
		Str("auction_id", auctionID.String()).
		Uint64("epoch", epoch).
		Dur("duration", after).
		Msg("scheduled bid countdown")
}

// enqueue hands an expiry to the workers, waiting for room when the queue is
// full. It gives up only when the scheduler stops.
func (s *Scheduler) enqueue(job expiry) {
	select {
	case s.workCh <- job:
		log.Debug().
			Str("auction_id", job.auctionID.String()).
			Uint64("epoch", job.epoch).
			Msg("bid countdown expired, enqueued for settlement")
		return
	default:
	}

	log.Warn().
		Str("auction_id", job.auctionID.String()).
		Uint64("epoch", job.epoch).
		Msg("bid countdown expired but work channel full, waiting for a worker")
	select {
	case s.workCh <- job:
	case <-s.stopCh:
		log.Warn().
			Str("auction_id", job.auctionID.String()).
			Uint64("epoch", job.epoch).
			Msg("scheduler stopped before expiry was enqueued")
	}
}

// Cancel stops the pending countdown for the auction, if any.
func (s *Scheduler) Cancel(auctionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.timers[auctionID]; ok {
		p.stop()
		delete(s.timers, auctionID)
		log.Debug().Str("auction_id", auctionID.String()).Msg("cancelled bid countdown")
	}
}

// Pending reports how many countdowns are running.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// replaceTimer installs p for the auction, cancelling the countdown it replaces.
func (s *Scheduler) replaceTimer(auctionID uuid.UUID, p *pendingTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[auctionID]; ok {
		existing.stop()
		log.Debug().Str("auction_id", auctionID.String()).Msg("replaced existing bid countdown")
	}
	s.timers[auctionID] = p
}

// removeTimer forgets a fired countdown unless it was already replaced.
func (s *Scheduler) removeTimer(auctionID uuid.UUID, p *pendingTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[auctionID] == p {
		delete(s.timers, auctionID)
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
