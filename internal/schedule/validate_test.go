package schedule_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/schedule"
)

func validEntry() models.ScheduleEntry {
	return models.ScheduleEntry{
		Class:       "Class 10",
		Batch:       "A",
		Day:         "Monday",
		Subject:     "Physics",
		StartTime:   "09:00",
		EndTime:     "10:00",
		TeacherName: "Mr. Sharma",
		RoomNumber:  "101",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*models.ScheduleEntry)
		field string
	}{
		{"valid", func(e *models.ScheduleEntry) {}, ""},
		{"valid dated", func(e *models.ScheduleEntry) { e.Day, e.Date = "", "2024-03-04" }, ""},
		{"single digit hour", func(e *models.ScheduleEntry) { e.StartTime, e.EndTime = "9:00", "10:00" }, ""},
		{"empty class", func(e *models.ScheduleEntry) { e.Class = "" }, "class"},
		{"blank class", func(e *models.ScheduleEntry) { e.Class = "   " }, "class"},
		{"no anchor", func(e *models.ScheduleEntry) { e.Day = "" }, "day"},
		{"both anchors", func(e *models.ScheduleEntry) { e.Date = "2024-03-04" }, "date"},
		{"sunday", func(e *models.ScheduleEntry) { e.Day = "Sunday" }, "day"},
		{"bad date", func(e *models.ScheduleEntry) { e.Day, e.Date = "", "04/03/2024" }, "date"},
		{"no subject", func(e *models.ScheduleEntry) { e.Subject = "" }, "subject"},
		{"no start", func(e *models.ScheduleEntry) { e.StartTime = "" }, "startTime"},
		{"bad start", func(e *models.ScheduleEntry) { e.StartTime = "9am" }, "startTime"},
		{"no end", func(e *models.ScheduleEntry) { e.EndTime = "" }, "endTime"},
		{"bad end", func(e *models.ScheduleEntry) { e.EndTime = "25:00" }, "endTime"},
		{"no teacher", func(e *models.ScheduleEntry) { e.TeacherName = "" }, "teacherName"},
		{"end before start", func(e *models.ScheduleEntry) { e.StartTime, e.EndTime = "10:00", "09:00" }, "endTime"},
		{"end equals start", func(e *models.ScheduleEntry) { e.EndTime = "09:00" }, "endTime"},
		{"first rule wins", func(e *models.ScheduleEntry) { e.Class, e.Subject = "", "" }, "class"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.edit(&e)
			err := schedule.Validate(e)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Reason)
		})
	}
}
