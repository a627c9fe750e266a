package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/mghazyfawazh/schoolportal/internal/models"
)

// TeacherLoad counts the periods one teacher holds on each weekday.
type TeacherLoad struct {
	Teacher string         `json:"teacher"`
	Classes []string       `json:"classes"`
	PerDay  map[string]int `json:"perDay"`
	Total   int            `json:"total"`
}

// TeacherLoads tallies entries per teacher name. Dated entries count toward
// the weekday of their date; Sundays and unanchored entries only count in Total.
// Teachers are sorted by name.
func TeacherLoads(entries []models.ScheduleEntry) []TeacherLoad {
	type agg struct {
		load    TeacherLoad
		classes map[string]struct{}
	}
	data := map[string]*agg{}
	for _, e := range entries {
		name := strings.TrimSpace(e.TeacherName)
		a, ok := data[name]
		if !ok {
			a = &agg{load: TeacherLoad{Teacher: name, PerDay: map[string]int{}}, classes: map[string]struct{}{}}
			data[name] = a
		}
		a.classes[strings.TrimSpace(e.Class)] = struct{}{}
		if day := weekdayOf(e); day != "" {
			a.load.PerDay[day]++
		}
		a.load.Total++
	}

	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]TeacherLoad, 0, len(names))
	for _, n := range names {
		a := data[n]
		for c := range a.classes {
			a.load.Classes = append(a.load.Classes, c)
		}
		sort.Strings(a.load.Classes)
		out = append(out, a.load)
	}
	return out
}

func weekdayOf(e models.ScheduleEntry) string {
	if date := strings.TrimSpace(e.Date); date != "" {
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return ""
		}
		if day := t.Weekday().String(); models.WeekdayRank(day) > 0 {
			return day
		}
		return ""
	}
	if day := strings.TrimSpace(e.Day); models.WeekdayRank(day) > 0 {
		return day
	}
	return ""
}
