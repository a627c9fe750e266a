// Package records holds the school records kept next to the timetable:
// test results, complaint buckets, syllabus progress and portal traffic.
package records

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

const (
	ResultsCollection    = "results"
	ComplaintsCollection = "complaints"
	SyllabusCollection   = "syllabus"
	TrafficCollection    = "traffic"
)

const dateLayout = "2006-01-02"

type base struct {
	store repo.Store
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

type Option func(*base)

// WithClock replaces time.Now for stamping records.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithIDs replaces the uuid generator.
func WithIDs(newID func() string) Option {
	return func(b *base) { b.newID = newID }
}

func newBase(store repo.Store, log *zap.Logger, opts []Option) base {
	if log == nil {
		log = zap.NewNop()
	}
	b := base{
		store: store,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) stamp() time.Time {
	return b.now().UTC().Truncate(time.Millisecond)
}

// filterOf keeps the non-blank values.
func filterOf(values map[string]string) repo.Filter {
	out := repo.Filter{}
	for k, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
