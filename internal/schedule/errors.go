package schedule

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrVersionConflict is returned when an upsert carried an expected version
// that no longer matches the stored entry.
var ErrVersionConflict = errors.New("schedule entry was changed by someone else")

// BulkError reports a week-wise upsert that stopped part way. Days before
// Day were written and are not rolled back.
type BulkError struct {
	Written int
	Day     string
	Err     error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk upsert stopped at %s after %d written: %v", e.Day, e.Written, e.Err)
}

func (e *BulkError) Unwrap() error { return e.Err }
