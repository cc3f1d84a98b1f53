package model

// Deck names the level of a bus a seat sits on.  Sleeper coaches have two
// decks; seater coaches only use the lower one.
type Deck string

const (
	DeckLower Deck = "lower"
	DeckUpper Deck = "upper"
)

// ParseDeck normalizes a deck string coming from the backend or a query
// parameter.  Anything that is not "upper" is treated as the lower deck.
func ParseDeck(s string) Deck {
	if s == string(DeckUpper) {
		return DeckUpper
	}
	return DeckLower
}

// SeatClass describes whether a seat is sold on its own or as half of a
// pair.  Paired seats (double sleeper berths) must be selected together.
type SeatClass string

const (
	SeatSingle      SeatClass = "single"
	SeatPairedLeft  SeatClass = "pairedLeft"
	SeatPairedRight SeatClass = "pairedRight"
)

// IsPaired reports whether the class belongs to a pairing group.
func (c SeatClass) IsPaired() bool {
	return c == SeatPairedLeft || c == SeatPairedRight
}

// Seat describes one seat of a bus as reported by the inventory backend.
// Seats are replaced wholesale on every catalog refresh and are never
// mutated by the client; Booked is authoritative only as of the last load.
// Label is the printed seat label (seat_number or seat_label), PairKey the
// pairing-group key, empty for seats sold alone.
type Seat struct {
	ID      uint64    `json:"id"`
	Deck    Deck      `json:"deck"`
	Label   string    `json:"label"`
	Class   SeatClass `json:"class"`
	Booked  bool      `json:"is_booked"`
	PairKey string    `json:"pair_key,omitempty"`
}

// Bus is a bookable bus as returned by GET /buses.
type Bus struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
}
