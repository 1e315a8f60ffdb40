// Package statuscache keeps display copies of remaining cooldowns in Redis.
// Entries expire on their own when the cooldown ends. Nothing that mutates
// state reads from here.
package statuscache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
)

const keyPrefix = "{bosun}:cooldown"

type RedisCooldowns struct {
	client goredis.UniversalClient
	now    func() time.Time
}

func NewRedisCooldowns(client goredis.UniversalClient) *RedisCooldowns {
	return &RedisCooldowns{client: client, now: time.Now}
}

func cooldownKey(key store.CooldownKey) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", keyPrefix, key.ActorID, key.Item.Type, key.Item.ID, key.Action)
}

// Remember stores the cooldown end so it expires with the cooldown
func (c *RedisCooldowns) Remember(ctx context.Context, key store.CooldownKey, remaining time.Duration) error {
	if remaining <= 0 {
		return c.client.Del(ctx, cooldownKey(key)).Err()
	}
	until := c.now().Add(remaining).UnixMilli()
	return c.client.Set(ctx, cooldownKey(key), strconv.FormatInt(until, 10), remaining).Err()
}

// Lookup returns ok=false on a miss so the caller can fall back to the ledger
func (c *RedisCooldowns) Lookup(ctx context.Context, key store.CooldownKey) (time.Duration, bool, error) {
	raw, err := c.client.Get(ctx, cooldownKey(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	until, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	remaining := time.UnixMilli(until).Sub(c.now())
	if remaining <= 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}
