package selection

import (
	"reflect"
	"sort"
	"testing"

	"github.com/Yusuf8760/bus-booking-frontend/internal/catalog"
	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
)

func snapshot(recs ...inventory.SeatRecord) *catalog.Snapshot {
	return catalog.NewSnapshot(1, catalog.BuildSeats(recs))
}

func seat(id uint64, label string, booked bool) inventory.SeatRecord {
	return inventory.SeatRecord{ID: id, SeatLabel: label, Deck: "lower", IsBooked: booked}
}

func sorted(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestToggle_SingleSeat(t *testing.T) {
	cat := snapshot(seat(1, "1A", false))
	var s Set

	if !s.Toggle(cat, 1) {
		t.Fatalf("expected toggle to be accepted")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []uint64{1}) {
		t.Fatalf("expected {1}, got %v", got)
	}
	if !s.Toggle(cat, 1) || s.Len() != 0 {
		t.Fatalf("second toggle must deselect, got %v", s.IDs())
	}
}

func TestToggle_PairMovesAsUnit(t *testing.T) {
	cat := snapshot(seat(21, "2B", false), seat(22, "2C", false), seat(3, "3A", false))
	var s Set

	s.Toggle(cat, 21)
	if got := sorted(s.IDs()); !reflect.DeepEqual(got, []uint64{21, 22}) {
		t.Fatalf("selecting 2B must select 2C too, got %v", got)
	}
	s.Toggle(cat, 22)
	if s.Len() != 0 {
		t.Fatalf("deselecting 2C must drop the pair, got %v", s.IDs())
	}

	// Never exactly one member of the pair, whatever the toggle order.
	for _, seq := range [][]uint64{{21}, {22}, {21, 3}, {3, 22, 21}, {22, 22, 21}} {
		var x Set
		for _, id := range seq {
			x.Toggle(cat, id)
		}
		if x.Contains(21) != x.Contains(22) {
			t.Fatalf("sequence %v split the pair: %v", seq, x.IDs())
		}
	}
}

func TestToggle_TwiceRestoresState(t *testing.T) {
	cat := snapshot(seat(1, "1A", false), seat(21, "2B", false), seat(22, "2C", false), seat(4, "4A", false))
	var s Set
	s.Toggle(cat, 1)
	s.Toggle(cat, 4)

	for _, id := range []uint64{1, 21, 22, 4, 99} {
		before := sorted(s.IDs())
		s.Toggle(cat, id)
		s.Toggle(cat, id)
		if after := sorted(s.IDs()); !reflect.DeepEqual(before, after) {
			t.Fatalf("double toggle of %d changed %v to %v", id, before, after)
		}
	}
}

func TestToggle_Rejections(t *testing.T) {
	cat := snapshot(seat(1, "1A", true), seat(21, "2B", false), seat(22, "2C", true))
	var s Set

	if s.Toggle(cat, 1) {
		t.Fatalf("booked seat must be rejected")
	}
	if s.Toggle(cat, 99) {
		t.Fatalf("unknown seat must be rejected")
	}
	if s.Toggle(cat, 21) {
		t.Fatalf("seat whose partner is booked must be rejected")
	}
	if s.Len() != 0 {
		t.Fatalf("rejected toggles must not change the set, got %v", s.IDs())
	}
}

func TestToggle_DeselectsSeatBookedAfterSelection(t *testing.T) {
	before := snapshot(seat(1, "1A", false), seat(21, "2B", false), seat(22, "2C", false))
	var s Set
	s.Toggle(before, 1)
	s.Toggle(before, 21)

	// A refresh marked 1A and 2C booked while they were still selected.
	after := snapshot(seat(1, "1A", true), seat(21, "2B", false), seat(22, "2C", true))
	if !s.Toggle(after, 1) {
		t.Fatalf("selected seat must be removable after it was booked")
	}
	if !s.Toggle(after, 21) {
		t.Fatalf("selected pair must be removable after its partner was booked")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty set, got %v", s.IDs())
	}
	if s.Toggle(after, 1) {
		t.Fatalf("booked seat must not be re-added")
	}
}

func TestIsValidAndPrune(t *testing.T) {
	before := snapshot(seat(1, "1A", false), seat(21, "2B", false), seat(22, "2C", false), seat(5, "5A", false))
	var s Set
	s.Toggle(before, 1)
	s.Toggle(before, 21)
	s.Toggle(before, 5)
	if !s.IsValid(before) {
		t.Fatalf("fresh selection must be valid")
	}

	// 2C was booked by someone else and 5A vanished from the list.
	after := snapshot(seat(1, "1A", false), seat(21, "2B", false), seat(22, "2C", true))
	if s.IsValid(after) {
		t.Fatalf("selection must be stale after refresh")
	}
	removed := s.Prune(after)
	if got := sorted(removed); !reflect.DeepEqual(got, []uint64{5, 21, 22}) {
		t.Fatalf("expected 5, 21 and 22 pruned, got %v", got)
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []uint64{1}) {
		t.Fatalf("expected {1} kept, got %v", got)
	}
	if !s.IsValid(after) {
		t.Fatalf("pruned selection must be valid")
	}
}

func TestPrune_ExplicitLostSeats(t *testing.T) {
	cat := snapshot(seat(3, "3A", false), seat(4, "4A", false))
	var s Set
	s.Toggle(cat, 3)
	s.Toggle(cat, 4)

	removed := s.Prune(cat, 3)
	if !reflect.DeepEqual(removed, []uint64{3}) || !reflect.DeepEqual(s.IDs(), []uint64{4}) {
		t.Fatalf("expected seat 3 dropped, removed=%v kept=%v", removed, s.IDs())
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("clear must empty the set")
	}
}
