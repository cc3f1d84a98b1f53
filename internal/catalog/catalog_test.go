package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

type fakeSource struct {
	seats map[uint64][]inventory.SeatRecord
	err   error
	calls int
}

func (f *fakeSource) ListSeats(_ context.Context, busID uint64) ([]inventory.SeatRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.seats[busID], nil
}

func rec(id uint64, label, deck string, booked bool) inventory.SeatRecord {
	return inventory.SeatRecord{ID: id, SeatNumber: inventory.LooseString(label), Deck: deck, IsBooked: booked}
}

func TestBuildSeats_LabelConventionPairsBWithC(t *testing.T) {
	seats := BuildSeats([]inventory.SeatRecord{
		rec(1, "2A", "lower", false),
		rec(2, "2B", "lower", false),
		rec(3, "2C", "lower", false),
		rec(4, "3B", "lower", false),
		rec(5, "3C", "upper", false),
	})
	snap := NewSnapshot(7, seats)

	b, _ := snap.ByID(2)
	c, _ := snap.ByID(3)
	if b.PairKey == "" || b.PairKey != c.PairKey {
		t.Fatalf("expected 2B and 2C to share a pair key, got %q and %q", b.PairKey, c.PairKey)
	}
	if b.Class != model.SeatPairedLeft || c.Class != model.SeatPairedRight {
		t.Fatalf("unexpected classes %s/%s", b.Class, c.Class)
	}
	if p, ok := snap.PairOf(b); !ok || p.ID != 3 {
		t.Fatalf("expected PairOf(2B)=2C, got %+v ok=%v", p, ok)
	}

	a, _ := snap.ByID(1)
	if _, ok := snap.PairOf(a); ok {
		t.Fatalf("2A must not have a partner")
	}
	// 3B and 3C sit on different decks.
	lone, _ := snap.ByID(4)
	if lone.PairKey != "" {
		t.Fatalf("3B must stay single across decks, got key %q", lone.PairKey)
	}
}

func TestBuildSeats_ExplicitKeyAndSeatType(t *testing.T) {
	seats := BuildSeats([]inventory.SeatRecord{
		{ID: 10, SeatLabel: "U1", Deck: "upper", PairKey: "g1"},
		{ID: 11, SeatLabel: "U2", Deck: "upper", PairKey: "g1"},
		{ID: 12, SeatLabel: "5A", Deck: "lower", SeatType: "paired", Position: "left"},
		{ID: 13, SeatLabel: "5B", Deck: "lower", SeatType: "paired", Position: "right"},
		{ID: 14, SeatLabel: "6A", Deck: "lower", SeatType: "pairedLeft"},
	})
	snap := NewSnapshot(1, seats)

	u1, _ := snap.ByID(10)
	if p, ok := snap.PairOf(u1); !ok || p.ID != 11 {
		t.Fatalf("explicit key should pair U1 with U2, got %+v", p)
	}
	if u1.Class != model.SeatPairedLeft {
		t.Fatalf("expected U1 to be promoted to pairedLeft, got %s", u1.Class)
	}
	s5a, _ := snap.ByID(12)
	if p, ok := snap.PairOf(s5a); !ok || p.ID != 13 {
		t.Fatalf("seat_type pairing failed: %+v", p)
	}
	// A half pair without a sibling behaves as single.
	s6a, _ := snap.ByID(14)
	if s6a.PairKey != "" || s6a.Class != model.SeatSingle {
		t.Fatalf("orphan half pair should be single, got %+v", s6a)
	}
}

func TestSnapshot_Queries(t *testing.T) {
	snap := NewSnapshot(3, BuildSeats([]inventory.SeatRecord{
		rec(1, "1a", "lower", false),
		rec(2, "U1", "upper", true),
		rec(3, "1B", "lower", false),
	}))
	if got := len(snap.ByDeck(model.DeckLower)); got != 2 {
		t.Fatalf("expected 2 lower seats, got %d", got)
	}
	if st, ok := snap.ByLabel(model.DeckLower, "1A"); !ok || st.ID != 1 {
		t.Fatalf("label lookup should be case insensitive, got %+v ok=%v", st, ok)
	}
	if _, ok := snap.ByLabel(model.DeckLower, "U1"); ok {
		t.Fatalf("U1 is on the upper deck")
	}
	booked := snap.Booked([]uint64{1, 2, 99})
	if len(booked) != 2 || booked[0] != 2 || booked[1] != 99 {
		t.Fatalf("expected [2 99], got %v", booked)
	}
}

func TestCatalog_LoadKeepsSnapshotOnFailure(t *testing.T) {
	src := &fakeSource{seats: map[uint64][]inventory.SeatRecord{
		1: {rec(1, "1A", "lower", false)},
	}}
	c := New(src, nil)

	if c.Snapshot().Len() != 0 {
		t.Fatalf("new catalog must be empty")
	}
	seats, err := c.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(seats) != 1 || c.Snapshot().BusID != 1 {
		t.Fatalf("unexpected snapshot after load: %+v", c.Snapshot())
	}

	src.err = &model.TransportError{Op: "list seats", Err: errors.New("boom")}
	if _, err := c.Load(context.Background(), 1); err == nil {
		t.Fatalf("expected error")
	}
	var tErr *model.TransportError
	if _, err := c.Load(context.Background(), 1); !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if _, ok := c.ByID(1); !ok {
		t.Fatalf("failed refresh must keep the previous snapshot")
	}

	c.Reset()
	if _, ok := c.ByID(1); ok {
		t.Fatalf("reset must drop the snapshot")
	}
}

func TestCatalog_FetchDoesNotInstall(t *testing.T) {
	src := &fakeSource{seats: map[uint64][]inventory.SeatRecord{
		1: {rec(1, "1A", "lower", false)},
		2: {rec(5, "1A", "lower", false)},
	}}
	c := New(src, nil)
	if _, err := c.Load(context.Background(), 1); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap, err := c.Fetch(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if c.Snapshot().BusID != 1 {
		t.Fatalf("fetch must not swap the snapshot")
	}
	c.Swap(snap)
	if _, ok := c.ByID(5); !ok {
		t.Fatalf("swap must install the fetched snapshot")
	}
}
