package endorse

import (
	"context"
	"errors"
	"time"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
)

// Status reports the public counter and pin state of an item and, for a
// logged-in actor, how long each of their cooldowns has left. Nothing here
// is authoritative for a later endorse or pin.
func (s *Service) Status(ctx context.Context, actorID, itemID, itemType string) StatusResult {
	ref, kind := validate(itemID, itemType)
	if kind != "" {
		return StatusResult{Error: kind}
	}

	item, found, err := s.summaries.Get(ctx, ref.String(), func(ctx context.Context, _ string) (*store.Item, bool, error) {
		it, err := s.store.GetItem(ctx, ref)
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return it, true, nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Error("Failed to load item status")
		return StatusResult{Error: ErrServerError}
	}
	if !found {
		return StatusResult{Error: ErrNotFound}
	}

	now := s.clock.Now()
	out := StatusResult{
		Success:  true,
		ItemID:   ref.ID,
		ItemType: string(ref.Type),
		Name:     item.Name,
		Counter:  item.Endorsements,
	}
	if item.PinActive(now) {
		exp := *item.PinExpiry
		out.Pinned = true
		out.PinExpiry = &exp
	}

	if actorID == "" {
		return out
	}

	endorse, err := s.displayRemaining(ctx, store.CooldownKey{ActorID: actorID, Item: ref, Action: store.ActionEndorse}, item, now)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read endorse cooldown")
		return StatusResult{Error: ErrServerError}
	}
	pin, err := s.displayRemaining(ctx, store.CooldownKey{ActorID: actorID, Item: ref, Action: store.ActionPin}, item, now)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read pin cooldown")
		return StatusResult{Error: ErrServerError}
	}
	out.Cooldowns = &Cooldowns{Endorse: endorse.Milliseconds(), Pin: pin.Milliseconds()}
	return out
}

func (s *Service) displayRemaining(ctx context.Context, key store.CooldownKey, item *store.Item, now time.Time) (time.Duration, error) {
	if s.cooldowns != nil {
		if rem, ok, err := s.cooldowns.Lookup(ctx, key); err == nil && ok {
			return rem, nil
		} else if err != nil {
			s.logger.WithError(err).Debug("Cooldown cache lookup failed")
		}
	}

	rem, err := s.remaining(ctx, s.store, key, item, now)
	if err != nil {
		return 0, err
	}
	s.remember(ctx, key, rem)
	return rem, nil
}
