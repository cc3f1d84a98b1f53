// Package selection tracks the seats a user has picked on the current bus.
// Seats that belong to a pairing group are added and removed as a unit so
// the set never holds part of a group.
//
// A Set is not safe for concurrent use; the transaction orchestrator owns it
// and serializes access.
package selection

import "github.com/Yusuf8760/bus-booking-frontend/internal/model"

// SeatLookup is the read side of a seat catalog snapshot.
type SeatLookup interface {
	ByID(id uint64) (model.Seat, bool)
	GroupOf(seat model.Seat) []model.Seat
}

// Set is an ordered set of selected seat ids.
type Set struct {
	ids []uint64
}

// Toggle flips the membership of seatID, or of its whole pairing group.  A
// selected seat can always be deselected, even after a refresh marked it
// booked.  Adding returns false, leaving the set unchanged, when the seat is
// unknown or booked, or when any member of its group is booked.
func (s *Set) Toggle(cat SeatLookup, seatID uint64) bool {
	seat, ok := cat.ByID(seatID)
	if s.Contains(seatID) {
		s.remove(seatID)
		if ok {
			for _, g := range cat.GroupOf(seat) {
				s.remove(g.ID)
			}
		}
		return true
	}
	if !ok || seat.Booked {
		return false
	}
	group := cat.GroupOf(seat)
	for _, g := range group {
		if g.Booked {
			return false
		}
	}
	for _, g := range group {
		if !s.Contains(g.ID) {
			s.ids = append(s.ids, g.ID)
		}
	}
	return true
}

// Clear empties the set.
func (s *Set) Clear() { s.ids = nil }

// IDs returns a copy of the selected ids in selection order.
func (s *Set) IDs() []uint64 { return append([]uint64(nil), s.ids...) }

// Len returns the number of selected seats.
func (s *Set) Len() int { return len(s.ids) }

// Contains reports whether id is selected.
func (s *Set) Contains(id uint64) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IsValid reports whether every selected seat still exists unbooked in cat
// and every pairing group is either fully selected or absent.
func (s *Set) IsValid(cat SeatLookup) bool {
	for _, id := range s.ids {
		seat, ok := cat.ByID(id)
		if !ok || seat.Booked {
			return false
		}
		for _, g := range cat.GroupOf(seat) {
			if !s.Contains(g.ID) {
				return false
			}
		}
	}
	return true
}

// Prune drops every selected seat that is missing or booked in cat, together
// with the rest of its pairing group, and also drops the seats listed in
// lost.  It returns the removed ids in selection order.
func (s *Set) Prune(cat SeatLookup, lost ...uint64) []uint64 {
	drop := make(map[uint64]bool)
	for _, id := range lost {
		drop[id] = true
		if seat, ok := cat.ByID(id); ok {
			for _, g := range cat.GroupOf(seat) {
				drop[g.ID] = true
			}
		}
	}
	for _, id := range s.ids {
		seat, ok := cat.ByID(id)
		if !ok || seat.Booked {
			drop[id] = true
			if ok {
				for _, g := range cat.GroupOf(seat) {
					drop[g.ID] = true
				}
			}
			continue
		}
		// A group that lost a member in the refresh is dropped whole.
		for _, g := range cat.GroupOf(seat) {
			if g.Booked || !s.Contains(g.ID) {
				drop[id] = true
			}
		}
	}
	var removed []uint64
	kept := s.ids[:0]
	for _, id := range s.ids {
		if drop[id] {
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	s.ids = kept
	return removed
}

func (s *Set) remove(id uint64) {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}
