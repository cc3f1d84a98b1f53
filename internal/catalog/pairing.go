package catalog

import (
	"strings"

	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// BuildSeats converts wire records into seats and assigns pairing keys.
// Precedence:
//  1. an explicit pair_key from the backend;
//  2. a paired seat_type/position, grouped by deck and row;
//  3. the label convention: "<row>B" pairs with "<row>C" on the same deck.
//
// A key shared by fewer than two seats is dropped, so a half pair whose
// sibling is missing from the list behaves as a single seat.
func BuildSeats(recs []inventory.SeatRecord) []model.Seat {
	seats := make([]model.Seat, 0, len(recs))
	for _, r := range recs {
		st := model.Seat{
			ID:     r.ID,
			Deck:   model.ParseDeck(strings.ToLower(strings.TrimSpace(r.Deck))),
			Label:  strings.TrimSpace(r.Label()),
			Class:  parseClass(r.SeatType, r.Position),
			Booked: r.IsBooked,
		}
		switch {
		case r.PairKey != "":
			st.PairKey = "k:" + r.PairKey
		case st.Class.IsPaired():
			st.PairKey = "r:" + string(st.Deck) + ":" + rowOf(st.Label)
		}
		seats = append(seats, st)
	}
	pairByLabel(seats)
	finalizeGroups(seats)
	return seats
}

// pairByLabel applies the B/C label convention to seats that carry no
// pairing information of their own.
func pairByLabel(seats []model.Seat) {
	idx := make(map[string]int, len(seats))
	for i, st := range seats {
		if st.PairKey == "" {
			idx[labelKey(st.Deck, st.Label)] = i
		}
	}
	for i, st := range seats {
		if st.PairKey != "" {
			continue
		}
		row, letter := splitLabel(st.Label)
		if letter != "B" || row == "" {
			continue
		}
		j, ok := idx[labelKey(st.Deck, row+"C")]
		if !ok || j == i || seats[j].PairKey != "" {
			continue
		}
		key := "l:" + string(st.Deck) + ":" + row + "BC"
		seats[i].PairKey, seats[i].Class = key, model.SeatPairedLeft
		seats[j].PairKey, seats[j].Class = key, model.SeatPairedRight
	}
}

// finalizeGroups drops keys held by a single seat and fills in a class for
// grouped seats that arrived as single.
func finalizeGroups(seats []model.Seat) {
	members := make(map[string][]int)
	for i, st := range seats {
		if st.PairKey != "" {
			members[st.PairKey] = append(members[st.PairKey], i)
		}
	}
	for _, idx := range members {
		if len(idx) < 2 {
			st := &seats[idx[0]]
			st.PairKey = ""
			st.Class = model.SeatSingle
			continue
		}
		for n, i := range idx {
			if seats[i].Class.IsPaired() {
				continue
			}
			if n == 0 {
				seats[i].Class = model.SeatPairedLeft
			} else {
				seats[i].Class = model.SeatPairedRight
			}
		}
	}
}

func parseClass(seatType, position string) model.SeatClass {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
	}
	t, p := norm(seatType), norm(position)
	switch t {
	case "pairedleft":
		return model.SeatPairedLeft
	case "pairedright":
		return model.SeatPairedRight
	case "paired", "double", "sharing", "couple":
		if p == "right" {
			return model.SeatPairedRight
		}
		return model.SeatPairedLeft
	}
	return model.SeatSingle
}

// splitLabel splits "12B" into ("12", "B").  The letter is upper-cased.
func splitLabel(label string) (row, letter string) {
	l := strings.ToUpper(strings.TrimSpace(label))
	if len(l) < 2 {
		return "", ""
	}
	last := l[len(l)-1]
	if last < 'A' || last > 'Z' {
		return "", ""
	}
	return l[:len(l)-1], string(last)
}

// rowOf returns the label without its trailing seat letters.
func rowOf(label string) string {
	l := strings.ToUpper(strings.TrimSpace(label))
	end := len(l)
	for end > 0 && l[end-1] >= 'A' && l[end-1] <= 'Z' {
		end--
	}
	if end == 0 {
		return l
	}
	return l[:end]
}
