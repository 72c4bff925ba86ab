// Package stats recomputes every display value derived from raw vote counts:
// percentages, ranks and the current leader.
package stats

import (
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

type Derived struct {
	// Contestants keeps the arrival order, with VotePercentage and Rank set.
	Contestants []models.Contestant
	// Ranking is ordered by votes descending; ties keep arrival order.
	Ranking    []models.Contestant
	Leader     *models.Contestant
	TotalVotes int64
}

// Recompute derives all stats from scratch. The input slice is not modified.
func Recompute(in []models.Contestant) Derived {
	var total int64
	for _, c := range in {
		if c.Votes > 0 {
			total += c.Votes
		}
	}

	out := make([]models.Contestant, len(in))
	copy(out, in)
	for i := range out {
		out[i].VotePercentage = Percentage(out[i].Votes, total)
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return out[order[a]].Votes > out[order[b]].Votes
	})

	ranking := make([]models.Contestant, len(out))
	for rank, idx := range order {
		out[idx].Rank = rank + 1
	}
	for rank, idx := range order {
		ranking[rank] = out[idx]
	}

	d := Derived{
		Contestants: out,
		Ranking:     ranking,
		TotalVotes:  total,
	}
	if len(ranking) > 0 {
		leader := ranking[0]
		d.Leader = &leader
	}
	return d
}

// Percentage is votes/total as a percentage truncated, not rounded, to one
// decimal place: 1/7 gives 14.2. Rounding half up would report 14.3 for seven
// equal shares and a sum of 100.1, so truncation keeps the sum at or below 100.
func Percentage(votes, total int64) float64 {
	if total <= 0 || votes <= 0 {
		return 0
	}
	tenths := votes * 1000 / total
	return float64(tenths) / 10
}

// FormatVotes renders a count with thousands separators, e.g. 12,345.
func FormatVotes(n int64) string {
	return humanize.Comma(n)
}
