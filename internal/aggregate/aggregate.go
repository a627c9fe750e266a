// Package aggregate turns flat scored records into the ranked and grouped
// views shared by leaderboards, syllabus rollups and performance trends.
//
// Nothing here returns an error. Empty input yields an empty or zero result,
// and non-finite numbers count as 0, so one bad record never blanks a view.
package aggregate

import (
	"math"
	"sort"
	"time"
)

// Score is the numeric part of a record.
type Score struct {
	Marks float64
	OutOf float64
}

// Percentage is marks/outOf*100, or 0 when outOf is not positive.
// Zero is the "ungraded" value, not a failure.
func Percentage(marks, outOf float64) float64 {
	marks, outOf = finite(marks), finite(outOf)
	if outOf > 0 {
		return marks / outOf * 100
	}
	return 0
}

// Round2 rounds for display. Keep the unrounded value for further math.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Ranked is one group of a ranking.
type Ranked struct {
	Key        string  `json:"key"`
	Position   int     `json:"position"`
	Marks      float64 `json:"marks"`
	OutOf      float64 `json:"outOf"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// Rank groups records by keyFn, sums marks and outOf per group and orders
// groups by percentage, highest first. The sort is stable: equal percentages
// keep the order in which their groups first appeared. Equal percentages
// share a position.
func Rank[T any](records []T, keyFn func(T) string, scoreFn func(T) Score) []Ranked {
	out := []Ranked{}
	index := map[string]int{}
	for _, r := range records {
		k := keyFn(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Ranked{Key: k})
		}
		s := scoreFn(r)
		out[i].Marks += finite(s.Marks)
		out[i].OutOf += finite(s.OutOf)
		out[i].Count++
	}
	for i := range out {
		out[i].Percentage = Percentage(out[i].Marks, out[i].OutOf)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percentage > out[j].Percentage
	})
	for i := range out {
		if i > 0 && out[i].Percentage == out[i-1].Percentage {
			out[i].Position = out[i-1].Position
			continue
		}
		out[i].Position = i + 1
	}
	return out
}

// Mean is the average per-record percentage of one group.
type Mean struct {
	Group string  `json:"group"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Rounded is Mean for display.
func (m Mean) Rounded() float64 { return Round2(m.Mean) }

// Averages keeps groups in first-seen order.
type Averages []Mean

// Map returns the full-precision means keyed by group.
func (a Averages) Map() map[string]float64 {
	out := make(map[string]float64, len(a))
	for _, m := range a {
		out[m.Group] = m.Mean
	}
	return out
}

func (a Averages) Get(group string) (Mean, bool) {
	for _, m := range a {
		if m.Group == group {
			return m, true
		}
	}
	return Mean{}, false
}

// GroupAverage averages the per-record percentages inside each group. It does
// not sum marks first, so a 10-mark quiz weighs as much as a 100-mark exam.
func GroupAverage[T any](records []T, groupFn func(T) string, scoreFn func(T) Score) Averages {
	out := Averages{}
	sums := []float64{}
	index := map[string]int{}
	for _, r := range records {
		g := groupFn(r)
		i, ok := index[g]
		if !ok {
			i = len(out)
			index[g] = i
			out = append(out, Mean{Group: g})
			sums = append(sums, 0)
		}
		s := scoreFn(r)
		sums[i] += Percentage(s.Marks, s.OutOf)
		out[i].Count++
	}
	for i := range out {
		out[i].Mean = sums[i] / float64(out[i].Count)
	}
	return out
}

// MeanPercentage is the average per-record percentage of all records, 0 when empty.
func MeanPercentage[T any](records []T, scoreFn func(T) Score) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		s := scoreFn(r)
		sum += Percentage(s.Marks, s.OutOf)
	}
	return sum / float64(len(records))
}

// Trend compares the earlier half of a student's records with the later half.
type Trend struct {
	Before      float64 `json:"before"`
	After       float64 `json:"after"`
	BeforeCount int     `json:"beforeCount"`
	AfterCount  int     `json:"afterCount"`
}

func (t Trend) Delta() float64 { return t.After - t.Before }

func (t Trend) Improving() bool { return t.After > t.Before }

// SplitTrend sorts by date ascending and splits at len/2. With an odd count
// the middle record belongs to the later half.
func SplitTrend[T any](records []T, dateFn func(T) time.Time, scoreFn func(T) Score) Trend {
	sorted := make([]T, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return dateFn(sorted[i]).Before(dateFn(sorted[j]))
	})
	mid := len(sorted) / 2
	before, after := sorted[:mid], sorted[mid:]
	return Trend{
		Before:      MeanPercentage(before, scoreFn),
		After:       MeanPercentage(after, scoreFn),
		BeforeCount: len(before),
		AfterCount:  len(after),
	}
}

// Tally is a count for one key.
type Tally struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Count tallies records per key, most frequent first, ties in first-seen order.
func Count[T any](records []T, keyFn func(T) string) []Tally {
	out := []Tally{}
	index := map[string]int{}
	for _, r := range records {
		k := keyFn(r)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Tally{Key: k})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
