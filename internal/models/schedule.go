package models

import (
	"time"

	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

// Weekdays lists the days a recurring class can be scheduled on, in display order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// WeekdayRank returns 1 for Monday through 6 for Saturday, 0 for anything else.
func WeekdayRank(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i + 1
		}
	}
	return 0
}

// ScheduleEntry is one class session. Day and Date are mutually exclusive.
type ScheduleEntry struct {
	Key         string    `json:"key"`
	Class       string    `json:"class"`
	Batch       string    `json:"batch,omitempty"`
	Day         string    `json:"day,omitempty"`
	Date        string    `json:"date,omitempty"`
	Subject     string    `json:"subject"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	TeacherName string    `json:"teacherName"`
	RoomNumber  string    `json:"roomNumber,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UpdatedBy   string    `json:"updatedBy"`
	Version     int64     `json:"version"`
}

func (e ScheduleEntry) Fields() repo.Fields {
	return repo.Fields{
		"class":       e.Class,
		"batch":       e.Batch,
		"day":         e.Day,
		"date":        e.Date,
		"subject":     e.Subject,
		"startTime":   e.StartTime,
		"endTime":     e.EndTime,
		"teacherName": e.TeacherName,
		"roomNumber":  e.RoomNumber,
		"notes":       e.Notes,
		"createdAt":   e.CreatedAt,
		"createdBy":   e.CreatedBy,
		"updatedAt":   e.UpdatedAt,
		"updatedBy":   e.UpdatedBy,
		"version":     e.Version,
	}
}

func ScheduleFromDocument(d repo.Document) ScheduleEntry {
	f := d.Fields
	return ScheduleEntry{
		Key:         d.Key,
		Class:       f.String("class"),
		Batch:       f.String("batch"),
		Day:         f.String("day"),
		Date:        f.String("date"),
		Subject:     f.String("subject"),
		StartTime:   f.String("startTime"),
		EndTime:     f.String("endTime"),
		TeacherName: f.String("teacherName"),
		RoomNumber:  f.String("roomNumber"),
		Notes:       f.String("notes"),
		CreatedAt:   f.Time("createdAt"),
		CreatedBy:   f.String("createdBy"),
		UpdatedAt:   f.Time("updatedAt"),
		UpdatedBy:   f.String("updatedBy"),
		Version:     f.Int("version"),
	}
}
