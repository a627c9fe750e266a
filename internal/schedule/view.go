package schedule

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mghazyfawazh/schoolportal/internal/models"
)

// Group is the set of entries shown under one heading: a weekday name or a
// formatted calendar date.
type Group struct {
	Label   string                 `json:"label"`
	Entries []models.ScheduleEntry `json:"entries"`
}

// View is a sorted list and its grouping, always built from the same snapshot.
type View struct {
	Sequence uint64                 `json:"sequence"`
	Entries  []models.ScheduleEntry `json:"entries"`
	Groups   []Group                `json:"groups"`
}

// Group returns the entries under label.
func (v View) Group(label string) (Group, bool) {
	for _, g := range v.Groups {
		if g.Label == label {
			return g, true
		}
	}
	return Group{}, false
}

// BuildView sorts a copy of entries and groups it.
func BuildView(entries []models.ScheduleEntry) View {
	sorted := make([]models.ScheduleEntry, len(entries))
	copy(sorted, entries)
	Sort(sorted)

	v := View{Entries: sorted, Groups: []Group{}}
	index := map[string]int{}
	for _, e := range sorted {
		label := GroupLabel(e)
		i, ok := index[label]
		if !ok {
			i = len(v.Groups)
			index[label] = i
			v.Groups = append(v.Groups, Group{Label: label})
		}
		v.Groups[i].Entries = append(v.Groups[i].Entries, e)
	}
	return v
}

// GroupLabel is "Monday, January 8, 2024" for dated entries and the weekday
// name for recurring ones.
func GroupLabel(e models.ScheduleEntry) string {
	if date := strings.TrimSpace(e.Date); date != "" {
		if t, err := time.Parse(dateLayout, date); err == nil {
			return t.Format("Monday, January 2, 2006")
		}
		return date
	}
	if day := strings.TrimSpace(e.Day); day != "" {
		return day
	}
	return "Unscheduled"
}

// Sort orders entries in place: recurring entries Monday to Saturday, then
// dated entries by date, then entries with neither; inside each day by start
// time compared as numbers, so 9:00 comes before 10:00. The sort is stable.
func Sort(entries []models.ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		ca, cb := anchorClass(a), anchorClass(b)
		if ca != cb {
			return ca < cb
		}
		switch ca {
		case anchorDate:
			da, db := strings.TrimSpace(a.Date), strings.TrimSpace(b.Date)
			if da != db {
				return da < db
			}
		case anchorWeekday:
			ra, rb := models.WeekdayRank(strings.TrimSpace(a.Day)), models.WeekdayRank(strings.TrimSpace(b.Day))
			if ra != rb {
				return ra < rb
			}
		}
		return startMinutes(a) < startMinutes(b)
	})
}

const (
	anchorWeekday = iota
	anchorDate
	anchorNone
)

func anchorClass(e models.ScheduleEntry) int {
	if strings.TrimSpace(e.Date) != "" {
		if _, err := time.Parse(dateLayout, strings.TrimSpace(e.Date)); err == nil {
			return anchorDate
		}
	}
	if models.WeekdayRank(strings.TrimSpace(e.Day)) > 0 {
		return anchorWeekday
	}
	return anchorNone
}

// startMinutes puts unparseable times after every valid one.
func startMinutes(e models.ScheduleEntry) int {
	if m, ok := clockMinutes(e.StartTime); ok {
		return m
	}
	return math.MaxInt32
}
