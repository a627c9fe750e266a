package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mghazyfawazh/schoolportal/internal/models"
)

const dateLayout = "2006-01-02"

// Validate checks the rules below in order and reports the first one broken.
func Validate(e models.ScheduleEntry) error {
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	if blank(e.Class) {
		return models.Invalid("class", "is required")
	}
	switch {
	case blank(e.Day) && blank(e.Date):
		return models.Invalid("day", "either day or date is required")
	case !blank(e.Day) && !blank(e.Date):
		return models.Invalid("date", "set either day or date, not both")
	case !blank(e.Day):
		if models.WeekdayRank(strings.TrimSpace(e.Day)) == 0 {
			return models.Invalid("day", "must be one of Monday to Saturday")
		}
	default:
		if _, err := time.Parse(dateLayout, strings.TrimSpace(e.Date)); err != nil {
			return models.Invalid("date", "must be a calendar date (YYYY-MM-DD)")
		}
	}
	if blank(e.Subject) {
		return models.Invalid("subject", "is required")
	}
	if blank(e.StartTime) {
		return models.Invalid("startTime", "is required")
	}
	start, ok := clockMinutes(e.StartTime)
	if !ok {
		return models.Invalid("startTime", "must be HH:MM (24-hour)")
	}
	if blank(e.EndTime) {
		return models.Invalid("endTime", "is required")
	}
	end, ok := clockMinutes(e.EndTime)
	if !ok {
		return models.Invalid("endTime", "must be HH:MM (24-hour)")
	}
	if blank(e.TeacherName) {
		return models.Invalid("teacherName", "is required")
	}
	if end <= start {
		return models.Invalid("endTime", "must be after startTime")
	}
	return nil
}

// clockMinutes parses "H:MM" or "HH:MM" into minutes since midnight.
func clockMinutes(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// normalize trims every text field and zero-pads the clock times of a valid
// entry, so stored values match the trimmed filters used by reads.
func normalize(e models.ScheduleEntry) models.ScheduleEntry {
	for _, f := range []*string{&e.Class, &e.Batch, &e.Day, &e.Date, &e.Subject, &e.TeacherName, &e.RoomNumber, &e.Notes} {
		*f = strings.TrimSpace(*f)
	}
	for _, f := range []*string{&e.StartTime, &e.EndTime} {
		if m, ok := clockMinutes(*f); ok {
			*f = fmt.Sprintf("%02d:%02d", m/60, m%60)
		}
	}
	return e
}
