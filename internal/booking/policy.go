package booking

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
)

// Verdict is the interpretation of a /book response.
type Verdict int

const (
	VerdictRejected Verdict = iota
	VerdictSuccess
	VerdictRaceLost
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictRaceLost:
		return "race_lost"
	}
	return "rejected"
}

// Decision is what a SuccessPolicy concluded about one response.
type Decision struct {
	Verdict     Verdict
	LostSeatIDs []uint64
	Reason      string
}

// SuccessPolicy interprets /book responses.
type SuccessPolicy interface {
	Decide(resp inventory.BookResponse, submitted int) Decision
}

// PhrasePolicy prefers structured fields and falls back to matching the
// response message against known phrases.  Matching is case insensitive and
// looks for phrases inside the message, so punctuation and pluralization
// changes on the backend do not turn a booking into a reported failure.
type PhrasePolicy struct {
	SuccessPhrases  []string
	RacePhrases     []string
	NegativePhrases []string
}

// DefaultPolicy returns the policy used in production.
func DefaultPolicy() *PhrasePolicy {
	return &PhrasePolicy{
		SuccessPhrases: []string{
			"booked successfully",
			"booking successful",
			"booking confirmed",
			"booking complete",
			"successfully booked",
		},
		RacePhrases: []string{
			"already booked",
			"not available",
			"no longer available",
			"unavailable",
			"already reserved",
			"seat taken",
		},
		NegativePhrases: []string{
			"not booked",
			"not be booked",
			"booking failed",
			"booking unsuccessful",
			"failed to book",
			"could not book",
			"payment failed",
			"verification failed",
			"invalid signature",
		},
	}
}

var seatCountRe = regexp.MustCompile(`(\d+)\s+seats?\b`)

// Decide implements SuccessPolicy.
func (p *PhrasePolicy) Decide(resp inventory.BookResponse, submitted int) Decision {
	text := strings.TrimSpace(resp.Message)
	if text == "" {
		text = strings.TrimSpace(resp.Error)
	}
	if text == "" && !strings.HasPrefix(resp.Raw, "{") {
		text = resp.Raw
	}
	lower := strings.ToLower(text)
	raceLost := Decision{Verdict: VerdictRaceLost, LostSeatIDs: append([]uint64(nil), resp.Unavailable...), Reason: orDefault(text, "seat no longer available")}

	if resp.Status < 200 || resp.Status >= 300 {
		if resp.Status == 409 || len(resp.Unavailable) > 0 || containsAny(lower, p.RacePhrases) {
			return raceLost
		}
		return Decision{Verdict: VerdictRejected, Reason: orDefault(text, "booking rejected with status "+strconv.Itoa(resp.Status))}
	}

	// Structured fields decide a 2xx response; the message is only a reason.
	if resp.Success != nil {
		if !*resp.Success {
			if len(resp.Unavailable) > 0 {
				return raceLost
			}
			return Decision{Verdict: VerdictRejected, Reason: orDefault(text, "payment verification failed")}
		}
		if resp.BookedSeatIDs != nil && len(resp.BookedSeatIDs) != submitted {
			return Decision{Verdict: VerdictRejected, Reason: "partial booking reported"}
		}
		return Decision{Verdict: VerdictSuccess, Reason: orDefault(text, "booking confirmed")}
	}
	if len(resp.BookedSeatIDs) > 0 {
		if len(resp.BookedSeatIDs) == submitted {
			return Decision{Verdict: VerdictSuccess, Reason: orDefault(text, "booking confirmed")}
		}
		return Decision{Verdict: VerdictRejected, Reason: "partial booking reported"}
	}
	if len(resp.Unavailable) > 0 {
		return raceLost
	}

	// No structured verdict: match phrases, success first.
	if containsAny(lower, p.SuccessPhrases) && !containsAny(lower, p.NegativePhrases) {
		if m := seatCountRe.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n != submitted {
				return Decision{Verdict: VerdictRejected, Reason: text}
			}
		}
		return Decision{Verdict: VerdictSuccess, Reason: text}
	}
	if containsAny(lower, p.RacePhrases) {
		return raceLost
	}
	return Decision{Verdict: VerdictRejected, Reason: orDefault(text, "payment verification failed")}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
