package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/pubsub/v2"

	"github.com/jalvarez-dev/farmline-storefront/pkg/logger"
	"github.com/jalvarez-dev/farmline-storefront/pkg/metrics"
)

const changeTopic = "cart.changed"

const defaultSettleDelay = 150 * time.Millisecond

// Change describes one store mutation delivered to subscribers.
type Change struct {
	Op string    `json:"op"`
	At time.Time `json:"at"`
}

// Mutation names carried on Change events.
const (
	OpAdd       = "add"
	OpRemove    = "remove"
	OpQuantity  = "quantity"
	OpClear     = "clear"
	OpReconcile = "reconcile"
	OpRestore   = "restore"
)

// Snapshot is an immutable copy of the collection, usable with Restore.
type Snapshot []Line

// Result is returned by every mutating operation: whether the collection
// changed, plus the pre-mutation snapshot for callers that need to revert.
type Result struct {
	Changed  bool
	Previous Snapshot
}

// StoreParams configures a Store.
type StoreParams struct {
	Persister   Persister
	Clock       clock.Clock
	SettleDelay time.Duration
	Metrics     *metrics.CartMetrics
	Logger      *logger.Logger
}

// Store is the local durable mirror of the shopper's cart. It is usable
// immediately after Load, before any network round trip; callers reconcile
// it against server state as operations complete. The store itself performs
// no network I/O and never fails a mutation.
type Store struct {
	mu              sync.Mutex
	lines           []Line
	pendingRemovals map[int64]struct{}

	persister   Persister
	clk         clock.Clock
	settleDelay time.Duration
	mets        *metrics.CartMetrics
	logg        *logger.Logger
	hub         *pubsub.SimpleHub
}

// NewStore builds a store backed by the provided persister.
func NewStore(params StoreParams) (*Store, error) {
	if params.Persister == nil {
		return nil, fmt.Errorf("cart persister required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	settle := params.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return &Store{
		pendingRemovals: map[int64]struct{}{},
		persister:       params.Persister,
		clk:             clk,
		settleDelay:     settle,
		mets:            params.Metrics,
		logg:            params.Logger,
		hub:             pubsub.NewSimpleHub(nil),
	}, nil
}

// Load rehydrates the collection from the persister. Call once at startup.
func (s *Store) Load(ctx context.Context) error {
	lines, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading cart state: %w", err)
	}
	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()
	return nil
}

// Subscribe registers a listener for change notifications. The returned
// function removes the subscription. Listeners run on the hub's goroutine;
// they must not call back into mutating operations synchronously.
func (s *Store) Subscribe(fn func(Change)) func() {
	return s.hub.Subscribe(changeTopic, func(_ string, data interface{}) {
		if change, ok := data.(Change); ok {
			fn(change)
		}
	})
}

// AddLine inserts a line, or merges quantities when the id already exists.
// A merge result of zero or negative quantity is accepted as-is; quantity
// validation belongs to the input layer. A pending removal re-check for the
// same id is canceled, so a quick remove-then-add is not undone by the
// settle pass.
func (s *Store) AddLine(ctx context.Context, line Line) Result {
	s.mu.Lock()
	prev := s.snapshotLocked()
	delete(s.pendingRemovals, line.ID)

	merged := false
	for i := range s.lines {
		if s.lines[i].ID == line.ID {
			s.lines[i].Quantity += line.Quantity
			s.lines[i].Recalculate()
			merged = true
			break
		}
	}
	if !merged {
		s.lines = append(s.lines, line)
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.mets.IncMutation(OpAdd)
	s.notify(OpAdd)
	return Result{Changed: true, Previous: prev}
}

// RemoveLine filters the line with the matching id out of the collection and
// notifies immediately. After the settle delay it re-checks whether the id
// reappeared (a racing Reconcile can resurrect it) and removes it again if
// so. Best-effort correction, not a transactional guarantee.
func (s *Store) RemoveLine(ctx context.Context, id int64) Result {
	s.mu.Lock()
	prev := s.snapshotLocked()
	kept := s.lines[:0:0]
	removed := false
	for _, line := range s.lines {
		if line.ID == id {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	s.lines = kept
	s.pendingRemovals[id] = struct{}{}
	if removed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if removed {
		s.mets.IncMutation(OpRemove)
		s.notify(OpRemove)
	}

	go func() {
		<-s.clk.After(s.settleDelay)
		s.settleRemoval(id)
	}()

	return Result{Changed: removed, Previous: prev}
}

func (s *Store) settleRemoval(id int64) {
	s.mu.Lock()
	if _, pending := s.pendingRemovals[id]; !pending {
		s.mu.Unlock()
		return
	}
	delete(s.pendingRemovals, id)

	reappeared := false
	kept := s.lines[:0:0]
	for _, line := range s.lines {
		if line.ID == id {
			reappeared = true
			continue
		}
		kept = append(kept, line)
	}
	if reappeared {
		s.lines = kept
		s.persistLocked(context.Background())
	}
	s.mu.Unlock()

	if reappeared {
		s.mets.IncMutation(OpRemove)
		s.notify(OpRemove)
	}
}

// SetQuantity replaces the quantity of the matching line. Price fields are
// not recomputed here; that is the caller's responsibility.
func (s *Store) SetQuantity(ctx context.Context, id int64, quantity int) Result {
	s.mu.Lock()
	prev := s.snapshotLocked()
	changed := false
	for i := range s.lines {
		if s.lines[i].ID == id {
			s.lines[i].Quantity = quantity
			changed = true
			break
		}
	}
	if changed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if changed {
		s.mets.IncMutation(OpQuantity)
		s.notify(OpQuantity)
	}
	return Result{Changed: changed, Previous: prev}
}

// SetLine replaces the whole matching line, keeping the pricing invariant in
// the caller's hands. Used when the backend confirms authoritative fields.
func (s *Store) SetLine(ctx context.Context, line Line) Result {
	s.mu.Lock()
	prev := s.snapshotLocked()
	changed := false
	for i := range s.lines {
		if s.lines[i].ID == line.ID {
			note := s.lines[i].Note
			s.lines[i] = line
			s.lines[i].Note = note
			changed = true
			break
		}
	}
	if changed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if changed {
		s.mets.IncMutation(OpQuantity)
		s.notify(OpQuantity)
	}
	return Result{Changed: changed, Previous: prev}
}

// Clear empties the collection. Safe to call repeatedly.
func (s *Store) Clear(ctx context.Context) Result {
	s.mu.Lock()
	prev := s.snapshotLocked()
	s.lines = nil
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.mets.IncMutation(OpClear)
	s.notify(OpClear)
	return Result{Changed: len(prev) > 0, Previous: prev}
}

// Reconcile merges the authoritative server list into local state, keyed by
// id. When ids and quantities already match exactly the call is a no-op: no
// notification, collection untouched. On divergence, local ids the server no
// longer reports are dropped, server ids/quantities/prices are adopted, and
// local-only fields (Note) survive for ids both sides share. The equality
// check is shallow (id + quantity); price-only drift does not trigger a
// merge.
func (s *Store) Reconcile(ctx context.Context, serverLines []Line) Result {
	s.mu.Lock()
	prev := s.snapshotLocked()
	if s.matchesLocked(serverLines) {
		s.mu.Unlock()
		return Result{Changed: false, Previous: prev}
	}

	local := make(map[int64]Line, len(s.lines))
	for _, line := range s.lines {
		local[line.ID] = line
	}

	merged := make([]Line, 0, len(serverLines))
	for _, server := range serverLines {
		if mine, ok := local[server.ID]; ok {
			server.Note = mine.Note
		}
		merged = append(merged, server)
	}
	s.lines = merged
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.mets.IncMutation(OpReconcile)
	s.mets.IncReconcileReplace()
	s.notify(OpReconcile)
	return Result{Changed: true, Previous: prev}
}

// Restore rewrites the collection from a snapshot taken by an earlier
// mutation. Used by callers rolling back an optimistic update.
func (s *Store) Restore(ctx context.Context, snap Snapshot) {
	s.mu.Lock()
	s.lines = append([]Line(nil), snap...)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.mets.IncMutation(OpRestore)
	s.notify(OpRestore)
}

// Lines returns a copy of the current collection.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// ItemCount returns the total quantity across all lines, as shown on the
// header badge.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

func (s *Store) snapshotLocked() Snapshot {
	return append(Snapshot(nil), s.lines...)
}

func (s *Store) matchesLocked(serverLines []Line) bool {
	if len(serverLines) != len(s.lines) {
		return false
	}
	quantities := make(map[int64]int, len(s.lines))
	for _, line := range s.lines {
		quantities[line.ID] = line.Quantity
	}
	for _, server := range serverLines {
		qty, ok := quantities[server.ID]
		if !ok || qty != server.Quantity {
			return false
		}
	}
	return true
}

// persistLocked saves through the persister. The store has no failure mode
// of its own; a failed save is logged and the in-memory state stands.
func (s *Store) persistLocked(ctx context.Context) {
	if err := s.persister.Save(ctx, append([]Line(nil), s.lines...)); err != nil && s.logg != nil {
		s.logg.Error(ctx, "cart state save failed", err)
	}
}

func (s *Store) notify(op string) {
	_ = s.hub.Publish(changeTopic, Change{Op: op, At: s.clk.Now()})
}
