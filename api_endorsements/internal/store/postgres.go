package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/lib/pq"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/database"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

type PostgresConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxRetries: 3,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
	}
}

// Postgres is the production store. Cooldown locks are transaction-scoped
// advisory locks, so they are released on commit or rollback.
type Postgres struct {
	db       *sql.DB
	logger   logging.Logger
	executor failsafe.Executor[any]
}

func NewPostgres(db *sql.DB, cfg PostgresConfig, logger logging.Logger) *Postgres {
	retry := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return database.IsRetryable(err)
		}).
		WithMaxRetries(cfg.MaxRetries).
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithJitterFactor(0.1).
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			logger.WithError(e.LastError()).WithField("attempt", e.Attempts()).Warn("Retrying cooldown transaction")
		}).
		Build()

	return &Postgres{
		db:       db,
		logger:   logger,
		executor: failsafe.With[any](retry),
	}
}

func (p *Postgres) WithCooldownLock(ctx context.Context, key CooldownKey, fn func(tx Tx) error) error {
	return p.executor.WithContext(ctx).Run(func() error {
		opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
		return database.RunInTx(ctx, p.db, opts, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
				return fmt.Errorf("acquire cooldown lock: %w", err)
			}
			return fn(&pgTx{tx: tx})
		})
	})
}

func (p *Postgres) GetItem(ctx context.Context, ref ItemRef) (*Item, error) {
	return scanItem(p.db.QueryRowContext(ctx, selectItemSQL, string(ref.Type), ref.ID))
}

func (p *Postgres) LatestEvent(ctx context.Context, key CooldownKey) (*CooldownEvent, error) {
	return latestEvent(ctx, p.db, key)
}

// UpsertItem syncs identity fields and replaces the maintainer set. Counter
// and pin columns are never touched here.
func (p *Postgres) UpsertItem(ctx context.Context, item ItemSync) error {
	if err := item.Validate(); err != nil {
		return err
	}
	role := "co_maintainer"
	if item.Ref.Type == ItemTypeAgent {
		role = "developer"
	}

	return database.RunInTx(ctx, p.db, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bosun.items (item_type, item_id, name, owner_id, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (item_type, item_id) DO UPDATE SET
				name = EXCLUDED.name,
				owner_id = EXCLUDED.owner_id,
				updated_at = NOW()
		`, string(item.Ref.Type), item.Ref.ID, item.Name, item.OwnerID)
		if err != nil {
			return fmt.Errorf("upsert item: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM bosun.item_maintainers WHERE item_type = $1 AND item_id = $2
		`, string(item.Ref.Type), item.Ref.ID); err != nil {
			return fmt.Errorf("clear maintainers: %w", err)
		}

		if len(item.Maintainers) == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bosun.item_maintainers (item_type, item_id, actor_id, role)
			SELECT $1, $2, m, $4 FROM unnest($3::text[]) AS m
			ON CONFLICT DO NOTHING
		`, string(item.Ref.Type), item.Ref.ID, pq.Array(item.Maintainers), role)
		if err != nil {
			return fmt.Errorf("insert maintainers: %w", err)
		}
		return nil
	})
}

func (p *Postgres) ExpirePins(ctx context.Context, now time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bosun.items
		SET pinned = FALSE, pin_expiry = NULL, updated_at = NOW()
		WHERE pinned AND pin_expiry <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire pins: %w", err)
	}
	return res.RowsAffected()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

const selectItemSQL = `
	SELECT i.item_type, i.item_id, i.name, i.owner_id, i.endorsements, i.pinned, i.pin_expiry, i.updated_at,
		COALESCE((
			SELECT array_agg(m.actor_id ORDER BY m.actor_id)
			FROM bosun.item_maintainers m
			WHERE m.item_type = i.item_type AND m.item_id = i.item_id
		), '{}') AS maintainers
	FROM bosun.items i
	WHERE i.item_type = $1 AND i.item_id = $2
`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanItem(row *sql.Row) (*Item, error) {
	var (
		item      Item
		itemType  string
		pinExpiry sql.NullTime
	)
	err := row.Scan(
		&itemType, &item.Ref.ID, &item.Name, &item.OwnerID, &item.Endorsements,
		&item.Pinned, &pinExpiry, &item.UpdatedAt, pq.Array(&item.Maintainers),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	item.Ref.Type = ItemType(itemType)
	if pinExpiry.Valid {
		t := pinExpiry.Time.UTC()
		item.PinExpiry = &t
	}
	return &item, nil
}

func latestEvent(ctx context.Context, q queryer, key CooldownKey) (*CooldownEvent, error) {
	ev := CooldownEvent{Key: key}
	err := q.QueryRowContext(ctx, `
		SELECT id, occurred_at
		FROM bosun.cooldown_events
		WHERE actor_id = $1 AND item_type = $2 AND item_id = $3 AND action = $4
		ORDER BY occurred_at DESC, id DESC
		LIMIT 1
	`, key.ActorID, string(key.Item.Type), key.Item.ID, string(key.Action)).Scan(&ev.ID, &ev.OccurredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest cooldown event: %w", err)
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	return &ev, nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Item(ctx context.Context, ref ItemRef) (*Item, error) {
	return scanItem(t.tx.QueryRowContext(ctx, selectItemSQL+` FOR UPDATE OF i`, string(ref.Type), ref.ID))
}

func (t *pgTx) LatestEvent(ctx context.Context, key CooldownKey) (*CooldownEvent, error) {
	return latestEvent(ctx, t.tx, key)
}

func (t *pgTx) AppendEvent(ctx context.Context, key CooldownKey, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO bosun.cooldown_events (actor_id, item_type, item_id, action, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, key.ActorID, string(key.Item.Type), key.Item.ID, string(key.Action), at)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateEvent
	}
	if err != nil {
		return fmt.Errorf("append cooldown event: %w", err)
	}
	return nil
}

func (t *pgTx) IncrementEndorsements(ctx context.Context, ref ItemRef) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE bosun.items
		SET endorsements = endorsements + 1, updated_at = NOW()
		WHERE item_type = $1 AND item_id = $2
		RETURNING endorsements
	`, string(ref.Type), ref.ID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment endorsements: %w", err)
	}
	return count, nil
}

func (t *pgTx) SetPin(ctx context.Context, ref ItemRef, expiry time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bosun.items
		SET pinned = TRUE, pin_expiry = $3, updated_at = NOW()
		WHERE item_type = $1 AND item_id = $2
	`, string(ref.Type), ref.ID, expiry)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
