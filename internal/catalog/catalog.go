// Package catalog holds the last fetched seat map of a bus.  A snapshot is
// immutable once built; refreshes build a new one and swap it in, so readers
// never observe a partially applied refresh.
package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// SeatSource fetches the raw seat list of a bus.
type SeatSource interface {
	ListSeats(ctx context.Context, busID uint64) ([]inventory.SeatRecord, error)
}

// Catalog is the seat map of the bus currently being browsed.
type Catalog struct {
	src  SeatSource
	log  *zap.Logger
	now  func() time.Time
	snap atomic.Pointer[Snapshot]
}

// New returns an empty Catalog backed by src.
func New(src SeatSource, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{src: src, log: log, now: time.Now}
}

// Fetch loads the seats of busID and builds a snapshot without installing
// it.  Callers that must discard stale refreshes fetch, check, then Swap.
func (c *Catalog) Fetch(ctx context.Context, busID uint64) (*Snapshot, error) {
	recs, err := c.src.ListSeats(ctx, busID)
	if err != nil {
		c.log.Warn("seat catalog fetch failed", zap.Uint64("bus_id", busID), zap.Error(err))
		return nil, err
	}
	snap := NewSnapshot(busID, BuildSeats(recs))
	snap.LoadedAt = c.now().UTC()
	return snap, nil
}

// Swap installs snap as the current snapshot.
func (c *Catalog) Swap(snap *Snapshot) {
	c.snap.Store(snap)
}

// Load fetches and installs the seats of busID.  On failure the previous
// snapshot is kept.
func (c *Catalog) Load(ctx context.Context, busID uint64) ([]model.Seat, error) {
	snap, err := c.Fetch(ctx, busID)
	if err != nil {
		return nil, err
	}
	c.Swap(snap)
	return snap.Seats(), nil
}

// Reset drops the current snapshot.
func (c *Catalog) Reset() {
	c.snap.Store(nil)
}

// Snapshot returns the current snapshot, or an empty one when nothing has
// been loaded.
func (c *Catalog) Snapshot() *Snapshot {
	if s := c.snap.Load(); s != nil {
		return s
	}
	return NewSnapshot(0, nil)
}

// ByID looks a seat up in the current snapshot.
func (c *Catalog) ByID(id uint64) (model.Seat, bool) { return c.Snapshot().ByID(id) }

// ByDeck lists the seats of one deck in the current snapshot.
func (c *Catalog) ByDeck(deck model.Deck) []model.Seat { return c.Snapshot().ByDeck(deck) }

// ByLabel looks a seat up by deck and label in the current snapshot.
func (c *Catalog) ByLabel(deck model.Deck, label string) (model.Seat, bool) {
	return c.Snapshot().ByLabel(deck, label)
}

// PairOf returns the sibling of seat in the current snapshot.
func (c *Catalog) PairOf(seat model.Seat) (model.Seat, bool) { return c.Snapshot().PairOf(seat) }
