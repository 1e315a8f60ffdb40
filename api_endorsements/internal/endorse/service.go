// Package endorse runs the endorse and pin state machines. Every request
// ends in a Result; storage errors are mapped to SERVER_ERROR and never
// leave partial writes behind.
package endorse

import (
	"context"
	"errors"
	"time"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/clock"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/ledger"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/notify"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/ownership"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/token"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/cache"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/ctxkeys"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

const (
	DefaultPinDuration      = 12 * time.Hour
	DefaultRequestTolerance = 30 * time.Second
)

// CooldownCache holds display-only copies of remaining cooldowns. It is
// never consulted on a mutating call.
type CooldownCache interface {
	Remember(ctx context.Context, key store.CooldownKey, remaining time.Duration) error
	Lookup(ctx context.Context, key store.CooldownKey) (time.Duration, bool, error)
}

type Metrics interface {
	ObserveCommit(action string, elapsed time.Duration)
}

type Config struct {
	Store            store.Store
	Codec            token.Codec
	Clock            clock.Clock
	Dispatcher       notify.Dispatcher
	Cooldowns        CooldownCache
	Metrics          Metrics
	Logger           logging.Logger
	CooldownWindow   time.Duration
	PinDuration      time.Duration
	RequestTolerance time.Duration
	SummaryCache     cache.Options
}

type Service struct {
	store      store.Store
	ledger     *ledger.Ledger
	codec      token.Codec
	clock      clock.Clock
	dispatcher notify.Dispatcher
	cooldowns  CooldownCache
	metrics    Metrics
	logger     logging.Logger
	summaries  *cache.Cache[*store.Item]

	pinDuration time.Duration
	tolerance   time.Duration
}

func NewService(cfg Config) *Service {
	if cfg.Codec == nil {
		cfg.Codec = token.NewLegacyCodec(clock.DefaultBucketWidth)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = notify.Noop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.PinDuration <= 0 {
		cfg.PinDuration = DefaultPinDuration
	}
	if cfg.RequestTolerance <= 0 {
		cfg.RequestTolerance = DefaultRequestTolerance
	}
	if cfg.SummaryCache.TTL <= 0 {
		cfg.SummaryCache = cache.Options{
			TTL:                  5 * time.Second,
			StaleWhileRevalidate: 10 * time.Second,
			NegativeTTL:          5 * time.Second,
			MaxEntries:           10000,
		}
	}

	return &Service{
		store:       cfg.Store,
		ledger:      ledger.New(cfg.CooldownWindow),
		codec:       cfg.Codec,
		clock:       cfg.Clock,
		dispatcher:  cfg.Dispatcher,
		cooldowns:   cfg.Cooldowns,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		summaries:   cache.New[*store.Item](cfg.SummaryCache, cache.MetricsHooks{}),
		pinDuration: cfg.PinDuration,
		tolerance:   cfg.RequestTolerance,
	}
}

// ForgetItem drops the cached status summary for ref
func (s *Service) ForgetItem(ref store.ItemRef) {
	s.summaries.Delete(ref.String())
}

// Endorse records a vote and returns the new public counter
func (s *Service) Endorse(ctx context.Context, req Request) Result {
	return s.handle(ctx, store.ActionEndorse, req)
}

// Pin elevates an item the actor owns for PinDuration
func (s *Service) Pin(ctx context.Context, req Request) Result {
	return s.handle(ctx, store.ActionPin, req)
}

func validate(itemID, itemType string) (store.ItemRef, ErrorKind) {
	if !store.ValidItemID(itemID) {
		return store.ItemRef{}, ErrInvalidIDFormat
	}
	t, ok := store.ParseItemType(itemType)
	if !ok {
		return store.ItemRef{}, ErrInvalidType
	}
	return store.ItemRef{Type: t, ID: itemID}, ""
}

func (s *Service) handle(ctx context.Context, action store.Action, req Request) Result {
	ref, kind := validate(req.ItemID, req.ItemType)
	if kind != "" {
		return failure(kind)
	}
	if req.ActorID == "" {
		return failure(ErrNotLoggedIn)
	}

	now := s.clock.Now()
	key := store.CooldownKey{ActorID: req.ActorID, Item: ref, Action: action}
	log := s.logger.WithFields(logging.Fields{
		"actor_id":   req.ActorID,
		"item_id":    ref.ID,
		"item_type":  string(ref.Type),
		"action":     string(action),
		"request_id": ctxkeys.GetRequestID(ctx),
	})

	var result Result
	start := time.Now()
	err := s.store.WithCooldownLock(ctx, key, func(tx store.Tx) error {
		var item *store.Item
		loadItem := func() error {
			if item != nil {
				return nil
			}
			it, err := tx.Item(ctx, ref)
			if errors.Is(err, store.ErrNotFound) {
				return reject(ErrNotFound)
			}
			if err != nil {
				return err
			}
			item = it
			return nil
		}

		if action == store.ActionPin {
			if err := loadItem(); err != nil {
				return err
			}
			if !ownership.Authorized(item, req.ActorID) {
				return reject(ErrNotOwner)
			}
		}

		if req.ItemName != nil {
			if err := loadItem(); err != nil {
				return err
			}
			if *req.ItemName != item.Name {
				return reject(ErrItemNameMismatch)
			}
		}

		if req.Timestamp != nil {
			// compared as instants; a Sub over centuries saturates
			if ts := *req.Timestamp; ts.Before(now.Add(-s.tolerance)) || ts.After(now.Add(s.tolerance)) {
				return reject(ErrRequestExpired)
			}
		}

		if err := loadItem(); err != nil {
			return err
		}
		remaining, err := s.remaining(ctx, tx, key, item, now)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return &rejection{kind: ErrCooldown, remaining: remaining}
		}

		if req.SecurityToken != nil {
			claims := token.Claims{ItemID: ref.ID, ItemType: string(ref.Type), ActorID: req.ActorID}
			if !s.codec.Verify(*req.SecurityToken, claims, now) {
				return reject(ErrSecurityViolation)
			}
		}

		if err := s.ledger.Record(ctx, tx, key, now); err != nil {
			if errors.Is(err, store.ErrDuplicateEvent) {
				return &rejection{kind: ErrCooldown, remaining: s.ledger.Window()}
			}
			return err
		}
		switch action {
		case store.ActionEndorse:
			counter, err := tx.IncrementEndorsements(ctx, ref)
			if err != nil {
				return err
			}
			result = endorsed(counter)
		case store.ActionPin:
			expiry := now.Add(s.pinDuration)
			if err := tx.SetPin(ctx, ref, expiry); err != nil {
				return err
			}
			result = pinned(s.pinDuration, expiry)
		}
		return nil
	})

	var rej *rejection
	switch {
	case errors.As(err, &rej):
		if rej.kind.Class() == ClassIntegrity {
			log.WithField("error_kind", string(rej.kind)).Warn("Rejected endorsement with integrity failure")
		}
		if rej.kind == ErrCooldown {
			s.remember(ctx, key, rej.remaining)
			return cooldownFailure(rej.remaining)
		}
		return failure(rej.kind)
	case err != nil:
		log.WithError(err).Error("Endorsement transaction failed")
		return failure(ErrServerError)
	}

	if s.metrics != nil {
		s.metrics.ObserveCommit(string(action), time.Since(start))
	}
	s.summaries.Delete(ref.String())
	if action == store.ActionPin {
		s.remember(ctx, key, s.pinDuration)
	} else {
		s.remember(ctx, key, s.ledger.Window())
	}
	s.dispatch(action, req.ActorID, ref, result, now)
	log.Debug("Endorsement committed")
	return result
}

// remaining is the cooldown for key. For pin an active PinState answers
// directly; otherwise the ledger decides, so a ledger event without a
// matching pin still blocks.
func (s *Service) remaining(ctx context.Context, r ledger.Reader, key store.CooldownKey, item *store.Item, now time.Time) (time.Duration, error) {
	if key.Action == store.ActionPin && item.PinActive(now) {
		return item.PinExpiry.Sub(now), nil
	}
	return s.ledger.Remaining(ctx, r, key, now)
}

func (s *Service) remember(ctx context.Context, key store.CooldownKey, remaining time.Duration) {
	if s.cooldowns == nil || remaining <= 0 {
		return
	}
	if err := s.cooldowns.Remember(ctx, key, remaining); err != nil {
		s.logger.WithError(err).Debug("Failed to cache cooldown")
	}
}

func (s *Service) dispatch(action store.Action, actorID string, ref store.ItemRef, result Result, now time.Time) {
	s.dispatcher.Dispatch(notify.Event{
		Kind:       string(action),
		ActorID:    actorID,
		ItemID:     ref.ID,
		ItemType:   string(ref.Type),
		Counter:    result.Counter,
		PinExpiry:  result.PinExpiry,
		OccurredAt: now,
	})
}

// IssuePinToken returns a security token the owner can attach to a pin
// request. Tokens for other actors are never issued.
func (s *Service) IssuePinToken(ctx context.Context, actorID, itemID, itemType string) TokenResult {
	ref, kind := validate(itemID, itemType)
	if kind != "" {
		return TokenResult{Error: kind}
	}
	if actorID == "" {
		return TokenResult{Error: ErrNotLoggedIn}
	}

	item, err := s.store.GetItem(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return TokenResult{Error: ErrNotFound}
	}
	if err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Error("Failed to load item for pin token")
		return TokenResult{Error: ErrServerError}
	}
	if !ownership.Authorized(item, actorID) {
		return TokenResult{Error: ErrNotOwner}
	}

	now := s.clock.Now()
	tok := s.codec.Encode(token.Claims{ItemID: ref.ID, ItemType: string(ref.Type), ActorID: actorID}, now)
	expiresAt := token.ExpiresAt(now, s.codec.Width())
	expiresIn := expiresAt.Sub(now).Milliseconds()
	return TokenResult{Success: true, Token: tok, ExpiresAt: &expiresAt, ExpiresIn: &expiresIn}
}
