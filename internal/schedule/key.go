package schedule

import (
	"strings"
	"unicode"

	"github.com/mghazyfawazh/schoolportal/internal/models"
)

// DeriveKey returns the slot identity of an entry:
//
//	class_dayOrDate_subject_HHMM
//
// with all whitespace removed. Entries with equal keys are the same slot, so
// writing one overwrites the other.
func DeriveKey(e models.ScheduleEntry) string {
	anchor := e.Day
	if stripSpaces(anchor) == "" {
		anchor = e.Date
	}
	return strings.Join([]string{
		stripSpaces(e.Class),
		stripSpaces(anchor),
		stripSpaces(e.Subject),
		strings.ReplaceAll(stripSpaces(e.StartTime), ":", ""),
	}, "_")
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
