// Package store persists directory items, their pin state and the cooldown
// ledger. Every mutation made on behalf of an endorsement runs inside
// WithCooldownLock so the cooldown check and the write it guards commit
// together or not at all.
package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidItem = errors.New("invalid item")
	// ErrDuplicateEvent means an event for the same key and instant exists
	ErrDuplicateEvent = errors.New("duplicate cooldown event")
)

type ItemType string

const (
	ItemTypeCommunity ItemType = "community"
	ItemTypeAgent     ItemType = "agent"
)

// ParseItemType accepts the canonical lower-case names only
func ParseItemType(s string) (ItemType, bool) {
	switch ItemType(s) {
	case ItemTypeCommunity, ItemTypeAgent:
		return ItemType(s), true
	}
	return "", false
}

type Action string

const (
	ActionEndorse Action = "endorse"
	ActionPin     Action = "pin"
)

var itemIDPattern = regexp.MustCompile(`^\d{17,19}$`)

// ValidItemID reports whether id looks like a platform snowflake
func ValidItemID(id string) bool {
	return itemIDPattern.MatchString(id)
}

type ItemRef struct {
	Type ItemType
	ID   string
}

func (r ItemRef) String() string {
	return string(r.Type) + ":" + r.ID
}

// Item is the endorsement-relevant projection of a directory entry.
// Maintainers holds co-maintainers for communities and developers for agents.
type Item struct {
	Ref          ItemRef
	Name         string
	OwnerID      string
	Maintainers  []string
	Endorsements int64
	Pinned       bool
	PinExpiry    *time.Time
	UpdatedAt    time.Time
}

// PinActive reports whether the pin is publicly visible at now
func (i *Item) PinActive(now time.Time) bool {
	return i.Pinned && i.PinExpiry != nil && i.PinExpiry.After(now)
}

// CooldownKey identifies one rate-limited (actor, item, action) tuple
type CooldownKey struct {
	ActorID string
	Item    ItemRef
	Action  Action
}

func (k CooldownKey) String() string {
	return strings.Join([]string{k.ActorID, string(k.Item.Type), k.Item.ID, string(k.Action)}, "|")
}

// CooldownEvent is one ledger row. Rows are only ever appended.
type CooldownEvent struct {
	ID         int64
	Key        CooldownKey
	OccurredAt time.Time
}

// ItemSync is what the directory CRUD layer pushes for an item. It never
// carries counters or pin state.
type ItemSync struct {
	Ref         ItemRef
	Name        string
	OwnerID     string
	Maintainers []string
}

func (s ItemSync) Validate() error {
	if _, ok := ParseItemType(string(s.Ref.Type)); !ok {
		return ErrInvalidItem
	}
	if !ValidItemID(s.Ref.ID) || strings.TrimSpace(s.Name) == "" {
		return ErrInvalidItem
	}
	// agents are owned by their developer set; communities need an owner
	if s.Ref.Type == ItemTypeCommunity && s.OwnerID == "" {
		return ErrInvalidItem
	}
	return nil
}

// Tx is the view of the store inside a cooldown lock
type Tx interface {
	// Item loads and locks the item row
	Item(ctx context.Context, ref ItemRef) (*Item, error)
	// LatestEvent returns ErrNotFound when the tuple has no history
	LatestEvent(ctx context.Context, key CooldownKey) (*CooldownEvent, error)
	AppendEvent(ctx context.Context, key CooldownKey, at time.Time) error
	IncrementEndorsements(ctx context.Context, ref ItemRef) (int64, error)
	SetPin(ctx context.Context, ref ItemRef, expiry time.Time) error
}

// Store is implemented by the Postgres and in-memory backends
type Store interface {
	// WithCooldownLock runs fn serialized against every other call for the
	// same key. Writes made through tx are kept only if fn returns nil.
	WithCooldownLock(ctx context.Context, key CooldownKey, fn func(tx Tx) error) error

	GetItem(ctx context.Context, ref ItemRef) (*Item, error)
	LatestEvent(ctx context.Context, key CooldownKey) (*CooldownEvent, error)
	UpsertItem(ctx context.Context, item ItemSync) error
	// ExpirePins clears pin state whose expiry is at or before now
	ExpirePins(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
