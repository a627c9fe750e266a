package records_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/records"
)

var (
	admin   = models.Actor{Role: models.RoleAdmin, DisplayName: "Principal"}
	teacher = models.Actor{Role: models.RoleTeacher, DisplayName: "Mr. Sharma"}
	student = models.Actor{Role: models.RoleStudent, DisplayName: "Asha Rao"}
)

// testOptions gives a clock that advances a minute per call and sequential ids.
func testOptions() []records.Option {
	var mu sync.Mutex
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	n := 0
	return []records.Option{
		records.WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(time.Minute)
			return now
		}),
		records.WithIDs(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	}
}
