// Package result summarizes a finished session.
package result

import (
	"math"
	"time"

	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/phrases"
)

// Aggregate builds the session summary. The history is copied in order.
func Aggregate(history []model.RoundOutcome) model.SessionResult {
	res := model.SessionResult{
		TotalCount: len(history),
		History:    make([]model.RoundOutcome, len(history)),
	}
	copy(res.History, history)
	for _, o := range history {
		if o.Success {
			res.CorrectCount++
		}
	}
	return res
}

// Percentage returns the rounded share of successful rounds, 0 for an
// empty session.
func Percentage(res model.SessionResult) int {
	if res.TotalCount <= 0 {
		return 0
	}
	return int(math.Round(float64(res.CorrectCount) / float64(res.TotalCount) * 100))
}

// Tier grades a session for the closing comment.
type Tier int

const (
	TierKeepGoing Tier = iota
	TierGood
	TierGreat
	TierPerfect
)

// TierFor maps a percentage to a tier: 100 perfect, 80 great, 60 good.
func TierFor(percent int) Tier {
	switch {
	case percent >= 100:
		return TierPerfect
	case percent >= 80:
		return TierGreat
	case percent >= 60:
		return TierGood
	default:
		return TierKeepGoing
	}
}

// CommentKey returns the phrase pack key for the tier.
func (t Tier) CommentKey() string {
	switch t {
	case TierPerfect:
		return phrases.CommentPerfect
	case TierGreat:
		return phrases.CommentGreat
	case TierGood:
		return phrases.CommentGood
	default:
		return phrases.CommentKeepGoing
	}
}

// Comment returns the localized closing comment for res.
func Comment(res model.SessionResult, pack *phrases.Pack) string {
	key := TierFor(Percentage(res)).CommentKey()
	if pack == nil {
		return key
	}
	if c := pack.Comment(key); c != "" {
		return c
	}
	return key
}

// MeanReaction averages the elapsed time of successful rounds. ok is false
// when no round succeeded.
func MeanReaction(res model.SessionResult) (time.Duration, bool) {
	var sum time.Duration
	n := 0
	for _, o := range res.History {
		if !o.Success {
			continue
		}
		sum += o.Elapsed
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / time.Duration(n), true
}

// BestStreak returns the longest run of consecutive successes.
func BestStreak(res model.SessionResult) int {
	best, cur := 0, 0
	for _, o := range res.History {
		if !o.Success {
			cur = 0
			continue
		}
		cur++
		if cur > best {
			best = cur
		}
	}
	return best
}

// DirectionStat counts outcomes for one direction.
type DirectionStat struct {
	Direction model.Direction
	Correct   int
	Total     int
}

// ByDirection tallies outcomes per direction in canonical order, skipping
// directions that never came up.
func ByDirection(res model.SessionResult) []DirectionStat {
	counts := make(map[model.Direction]*DirectionStat)
	for _, o := range res.History {
		st, ok := counts[o.Direction]
		if !ok {
			st = &DirectionStat{Direction: o.Direction}
			counts[o.Direction] = st
		}
		st.Total++
		if o.Success {
			st.Correct++
		}
	}
	out := make([]DirectionStat, 0, len(counts))
	for _, d := range model.AllDirections() {
		if st, ok := counts[d]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// ReactionSeconds returns per-round elapsed times in seconds.
func ReactionSeconds(res model.SessionResult) []float64 {
	out := make([]float64, len(res.History))
	for i, o := range res.History {
		out[i] = o.Elapsed.Seconds()
	}
	return out
}
