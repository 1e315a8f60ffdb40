package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local store for development and tests. Cooldown locks
// are held per item, matching the row lock the Postgres store takes.
type Memory struct {
	mu     sync.RWMutex
	items  map[ItemRef]*Item
	events map[CooldownKey][]CooldownEvent
	nextID int64

	locks keyedMutex
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items:  make(map[ItemRef]*Item),
		events: make(map[CooldownKey][]CooldownEvent),
		locks:  keyedMutex{m: make(map[string]*refLock)},
		now:    time.Now,
	}
}

func (m *Memory) WithCooldownLock(ctx context.Context, key CooldownKey, fn func(tx Tx) error) error {
	unlock := m.locks.Lock(key.Item.String())
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: m, items: make(map[ItemRef]*stagedItem)}
	if err := fn(tx); err != nil {
		return err
	}
	m.commit(tx)
	return nil
}

func (m *Memory) commit(tx *memTx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ref, staged := range tx.items {
		cur, ok := m.items[ref]
		if !ok {
			continue
		}
		if staged.countDirty {
			cur.Endorsements = staged.item.Endorsements
		}
		if staged.pinDirty {
			cur.Pinned = staged.item.Pinned
			cur.PinExpiry = staged.item.PinExpiry
		}
		if staged.countDirty || staged.pinDirty {
			cur.UpdatedAt = m.now().UTC()
		}
	}
	for _, ev := range tx.events {
		m.nextID++
		ev.ID = m.nextID
		m.events[ev.Key] = append(m.events[ev.Key], ev)
	}
}

func (m *Memory) GetItem(_ context.Context, ref ItemRef) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneItem(item), nil
}

func (m *Memory) LatestEvent(_ context.Context, key CooldownKey) (*CooldownEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestLocked(key)
}

func (m *Memory) latestLocked(key CooldownKey) (*CooldownEvent, error) {
	var latest *CooldownEvent
	for i := range m.events[key] {
		ev := m.events[key][i]
		if latest == nil || !ev.OccurredAt.Before(latest.OccurredAt) {
			latest = &ev
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *Memory) UpsertItem(_ context.Context, in ItemSync) error {
	if err := in.Validate(); err != nil {
		return err
	}
	unlock := m.locks.Lock(in.Ref.String())
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	maintainers := append([]string(nil), in.Maintainers...)
	if item, ok := m.items[in.Ref]; ok {
		item.Name = in.Name
		item.OwnerID = in.OwnerID
		item.Maintainers = maintainers
		item.UpdatedAt = m.now().UTC()
		return nil
	}
	m.items[in.Ref] = &Item{
		Ref:         in.Ref,
		Name:        in.Name,
		OwnerID:     in.OwnerID,
		Maintainers: maintainers,
		UpdatedAt:   m.now().UTC(),
	}
	return nil
}

func (m *Memory) ExpirePins(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, item := range m.items {
		if item.Pinned && item.PinExpiry != nil && !item.PinExpiry.After(now) {
			item.Pinned = false
			item.PinExpiry = nil
			item.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// EventCount returns how many ledger rows exist for key
func (m *Memory) EventCount(key CooldownKey) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events[key])
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

type stagedItem struct {
	item       *Item
	countDirty bool
	pinDirty   bool
}

type memTx struct {
	store  *Memory
	items  map[ItemRef]*stagedItem
	events []CooldownEvent
}

func (t *memTx) staged(ref ItemRef) (*stagedItem, error) {
	if s, ok := t.items[ref]; ok {
		return s, nil
	}
	item, err := t.store.GetItem(context.Background(), ref)
	if err != nil {
		return nil, err
	}
	s := &stagedItem{item: item}
	t.items[ref] = s
	return s, nil
}

func (t *memTx) Item(_ context.Context, ref ItemRef) (*Item, error) {
	s, err := t.staged(ref)
	if err != nil {
		return nil, err
	}
	return cloneItem(s.item), nil
}

func (t *memTx) LatestEvent(ctx context.Context, key CooldownKey) (*CooldownEvent, error) {
	for i := len(t.events) - 1; i >= 0; i-- {
		if t.events[i].Key == key {
			ev := t.events[i]
			return &ev, nil
		}
	}
	return t.store.LatestEvent(ctx, key)
}

func (t *memTx) AppendEvent(ctx context.Context, key CooldownKey, at time.Time) error {
	if last, err := t.LatestEvent(ctx, key); err == nil && last.OccurredAt.Equal(at) {
		return ErrDuplicateEvent
	}
	t.events = append(t.events, CooldownEvent{Key: key, OccurredAt: at})
	return nil
}

func (t *memTx) IncrementEndorsements(_ context.Context, ref ItemRef) (int64, error) {
	s, err := t.staged(ref)
	if err != nil {
		return 0, err
	}
	s.item.Endorsements++
	s.countDirty = true
	return s.item.Endorsements, nil
}

func (t *memTx) SetPin(_ context.Context, ref ItemRef, expiry time.Time) error {
	s, err := t.staged(ref)
	if err != nil {
		return err
	}
	exp := expiry
	s.item.Pinned = true
	s.item.PinExpiry = &exp
	s.pinDirty = true
	return nil
}

func cloneItem(in *Item) *Item {
	out := *in
	out.Maintainers = append([]string(nil), in.Maintainers...)
	if in.PinExpiry != nil {
		exp := *in.PinExpiry
		out.PinExpiry = &exp
	}
	return &out
}

// keyedMutex hands out one mutex per key and forgets it once unused
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &refLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
