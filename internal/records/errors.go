package records

import "github.com/pkg/errors"

// ErrContended is returned when a complaint bucket kept changing under
// concurrent writers and every retry lost the race.
var ErrContended = errors.New("record changed concurrently, try again")
