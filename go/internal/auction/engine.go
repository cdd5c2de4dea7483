// Package auction runs live auction drafts: lifecycle, nominations, bids and
// settlement for many auctions at once, each serialized on its own lock.
package auction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/leagify/go/internal/auction/broadcast"
	"github.com/mcdev12/leagify/go/internal/auction/events"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UnsoldOutcome is what happens to a school that closes with no bid.
type UnsoldOutcome string

const (
	UnsoldReturnToPool UnsoldOutcome = "RETURN_TO_POOL"
	UnsoldWithdraw     UnsoldOutcome = "WITHDRAW"
)

// UnsoldPolicy decides the fate of a school nobody bid on.
type UnsoldPolicy func(school models.School) UnsoldOutcome

// ReturnToPool puts unsold schools back up for nomination.
func ReturnToPool(models.School) UnsoldOutcome { return UnsoldReturnToPool }

// Withdraw removes unsold schools from the auction.
func Withdraw(models.School) UnsoldOutcome { return UnsoldWithdraw }

// UnsoldPolicyByName resolves a configured policy name.
func UnsoldPolicyByName(name string) (UnsoldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "return", "return_to_pool":
		return ReturnToPool, nil
	case "withdraw":
		return Withdraw, nil
	default:
		return nil, fmt.Errorf("unknown unsold policy %q", name)
	}
}

// BidTimer runs the per-auction bid countdown. Schedule replaces any pending
// countdown for the auction; when it expires the owner calls
// Engine.HandleBidTimeout with the same epoch.
type BidTimer interface {
	Schedule(auctionID uuid.UUID, epoch uint64, after time.Duration)
	Cancel(auctionID uuid.UUID)
}

type noopTimer struct{}

func (noopTimer) Schedule(uuid.UUID, uint64, time.Duration) {}
func (noopTimer) Cancel(uuid.UUID)                          {}

// Config holds engine defaults applied to every new auction.
type Config struct {
	DefaultBudget int64
	OpeningBid    int64
	BidTimeout    time.Duration
	RosterDesign  models.RosterDesign
	UnsoldPolicy  UnsoldPolicy
	TokenCost     int
	Clock         clockwork.Clock
}

// DefaultConfig returns engine defaults. The roster design is left empty and
// must be supplied by the caller or per auction.
func DefaultConfig() Config {
	return Config{
		DefaultBudget: 200,
		OpeningBid:    0,
		BidTimeout:    30 * time.Second,
		UnsoldPolicy:  ReturnToPool,
		TokenCost:     bcrypt.DefaultCost,
		Clock:         clockwork.NewRealClock(),
	}
}

// Engine owns every auction held in memory.
type Engine struct {
	config    Config
	publisher broadcast.Gateway
	timer     BidTimer
	clock     clockwork.Clock

	mu        sync.RWMutex
	auctions  map[uuid.UUID]*auctionState
	joinCodes map[string]uuid.UUID
}

// NewEngine creates an engine. publisher and timer may be nil.
func NewEngine(config Config, publisher broadcast.Gateway, timer BidTimer) *Engine {
	defaults := DefaultConfig()
	if config.DefaultBudget <= 0 {
		config.DefaultBudget = defaults.DefaultBudget
	}
	if config.OpeningBid < 0 {
		config.OpeningBid = 0
	}
	if config.UnsoldPolicy == nil {
		config.UnsoldPolicy = defaults.UnsoldPolicy
	}
	if config.TokenCost == 0 {
		config.TokenCost = defaults.TokenCost
	}
	if config.Clock == nil {
		config.Clock = defaults.Clock
	}
	if publisher == nil {
		publisher = broadcast.Discard
	}
	if timer == nil {
		timer = noopTimer{}
	}
	return &Engine{
		config:    config,
		publisher: publisher,
		timer:     timer,
		clock:     config.Clock,
		auctions:  make(map[uuid.UUID]*auctionState),
		joinCodes: make(map[string]uuid.UUID),
	}
}

// lookup returns the auction state without locking it.
func (e *Engine) lookup(id uuid.UUID) (*auctionState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.auctions[id]
	if !ok {
		return nil, auctionNotFound(id)
	}
	return st, nil
}

// withAuction runs fn with the auction locked. Faulted auctions short-circuit.
func (e *Engine) withAuction(id uuid.UUID, fn func(st *auctionState) error) error {
	st, err := e.lookup(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.fault != nil {
		return st.fault
	}
	return fn(st)
}

// emit publishes one event for an accepted transition. Must hold st.mu.
// Publishing failures are logged and never undo the transition.
func (e *Engine) emit(ctx context.Context, st *auctionState, eventType events.Type, payload any) {
	env, err := events.New(st.id, st.seq+1, eventType, e.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("auction_id", st.id.String()).Msg("failed to build event")
		return
	}
	st.seq = env.Sequence
	if err := e.publisher.Publish(ctx, events.Topic(st.id), env); err != nil {
		log.Warn().
			Err(err).
			Str("auction_id", st.id.String()).
			Str("event_type", string(eventType)).
			Uint64("sequence", st.seq).
			Msg("failed to publish event")
	}
}

// faultAuction marks st as unusable. Must hold st.mu.
func (e *Engine) faultAuction(st *auctionState, detail string) error {
	fault := &InvariantViolationError{AuctionID: st.id, Detail: detail}
	st.fault = fault
	e.timer.Cancel(st.id)
	log.Error().
		Str("auction_id", st.id.String()).
		Str("detail", detail).
		Msg("auction invariant violated, auction faulted")
	return fault
}

// releaseJoinCode frees the join code of a completed auction for reuse.
func (e *Engine) releaseJoinCode(code string, id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if owner, ok := e.joinCodes[code]; ok && owner == id {
		delete(e.joinCodes, code)
	}
}

func (e *Engine) deadline(now time.Time, timeout time.Duration) *time.Time {
	if timeout <= 0 {
		return nil
	}
	d := now.Add(timeout)
	return &d
}
