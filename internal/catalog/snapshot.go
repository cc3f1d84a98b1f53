package catalog

import (
	"strings"
	"time"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// Snapshot is an immutable, indexed view of one seat list fetch.
type Snapshot struct {
	BusID    uint64
	LoadedAt time.Time

	seats   []model.Seat
	byID    map[uint64]int
	byLabel map[string]int
	groups  map[string][]int
}

// NewSnapshot indexes seats.  The slice is copied.
func NewSnapshot(busID uint64, seats []model.Seat) *Snapshot {
	s := &Snapshot{
		BusID:   busID,
		seats:   append([]model.Seat(nil), seats...),
		byID:    make(map[uint64]int, len(seats)),
		byLabel: make(map[string]int, len(seats)),
		groups:  make(map[string][]int),
	}
	for i, st := range s.seats {
		s.byID[st.ID] = i
		s.byLabel[labelKey(st.Deck, st.Label)] = i
		if st.PairKey != "" {
			s.groups[st.PairKey] = append(s.groups[st.PairKey], i)
		}
	}
	return s
}

// Len returns the number of seats.
func (s *Snapshot) Len() int { return len(s.seats) }

// Seats returns a copy of all seats in backend order.
func (s *Snapshot) Seats() []model.Seat {
	return append([]model.Seat(nil), s.seats...)
}

// ByID returns the seat with the given id.
func (s *Snapshot) ByID(id uint64) (model.Seat, bool) {
	i, ok := s.byID[id]
	if !ok {
		return model.Seat{}, false
	}
	return s.seats[i], true
}

// ByDeck returns the seats of one deck in backend order.
func (s *Snapshot) ByDeck(deck model.Deck) []model.Seat {
	out := make([]model.Seat, 0, len(s.seats))
	for _, st := range s.seats {
		if st.Deck == deck {
			out = append(out, st)
		}
	}
	return out
}

// ByLabel returns the seat printed as label on deck.  Labels compare case
// insensitively.
func (s *Snapshot) ByLabel(deck model.Deck, label string) (model.Seat, bool) {
	i, ok := s.byLabel[labelKey(deck, label)]
	if !ok {
		return model.Seat{}, false
	}
	return s.seats[i], true
}

// GroupOf returns every seat that must be selected together with seat,
// seat included.  A seat outside any group is returned alone.
func (s *Snapshot) GroupOf(seat model.Seat) []model.Seat {
	if seat.PairKey == "" {
		return []model.Seat{seat}
	}
	idx := s.groups[seat.PairKey]
	if len(idx) < 2 {
		return []model.Seat{seat}
	}
	out := make([]model.Seat, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.seats[i])
	}
	return out
}

// PairOf returns the sibling of seat when it belongs to a group of two.
func (s *Snapshot) PairOf(seat model.Seat) (model.Seat, bool) {
	g := s.GroupOf(seat)
	if len(g) != 2 {
		return model.Seat{}, false
	}
	if g[0].ID == seat.ID {
		return g[1], true
	}
	return g[0], true
}

// Booked returns the ids among ids that are booked or missing in the
// snapshot.
func (s *Snapshot) Booked(ids []uint64) []uint64 {
	var out []uint64
	for _, id := range ids {
		st, ok := s.ByID(id)
		if !ok || st.Booked {
			out = append(out, id)
		}
	}
	return out
}

func labelKey(deck model.Deck, label string) string {
	return string(deck) + "|" + strings.ToUpper(strings.TrimSpace(label))
}
