package schedule

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/metrics"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

// Collection is where schedule entries live in the document store.
const Collection = "schedules"

// Filter narrows a listing. Empty fields match any value.
type Filter struct {
	Class string `form:"class"`
	Day   string `form:"day"`
	Batch string `form:"batch"`
	Date  string `form:"date"`
}

func (f Filter) store() repo.Filter {
	out := repo.Filter{}
	for k, v := range map[string]string{"class": f.Class, "day": f.Day, "batch": f.Batch, "date": f.Date} {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// UpsertOptions tune a single upsert.
type UpsertOptions struct {
	// ExpectedVersion makes the write conditional: it lands only if the stored
	// entry still has this version (0 = the slot must be empty). Nil keeps
	// last-writer-wins.
	ExpectedVersion *int64
}

type Service struct {
	store repo.Store
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for stamping createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repo.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Upsert writes entry under its derived key, replacing whatever was there.
// Text fields are stored trimmed and clock times as zero-padded HH:MM.
// createdAt/createdBy survive from an existing entry; updatedAt/updatedBy and
// version are always refreshed.
func (s *Service) Upsert(ctx context.Context, actor models.Actor, entry models.ScheduleEntry, opts UpsertOptions) (models.ScheduleEntry, error) {
	if !actor.CanEdit() {
		return models.ScheduleEntry{}, models.ErrForbidden
	}
	if err := Validate(entry); err != nil {
		return models.ScheduleEntry{}, err
	}
	entry = normalize(entry)
	key := DeriveKey(entry)
	now := s.stamp()

	var stored int64
	existing, err := s.store.Get(ctx, Collection, key)
	switch {
	case err == nil:
		prev := models.ScheduleFromDocument(existing)
		entry.CreatedAt, entry.CreatedBy = prev.CreatedAt, prev.CreatedBy
		stored = prev.Version
	case errors.Is(err, repo.ErrNotFound):
		entry.CreatedAt, entry.CreatedBy = now, actor.DisplayName
	default:
		return models.ScheduleEntry{}, models.StoreFailure("get", err)
	}

	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != stored {
		return models.ScheduleEntry{}, ErrVersionConflict
	}

	entry.Key = key
	entry.UpdatedAt, entry.UpdatedBy = now, actor.DisplayName
	entry.Version = stored + 1

	if opts.ExpectedVersion != nil {
		if vp, ok := s.store.(repo.VersionedPutter); ok {
			err = vp.PutIfVersion(ctx, Collection, key, entry.Fields(), stored)
			if errors.Is(err, repo.ErrVersionMismatch) {
				return models.ScheduleEntry{}, ErrVersionConflict
			}
		} else {
			err = s.store.Put(ctx, Collection, key, entry.Fields())
		}
	} else {
		err = s.store.Put(ctx, Collection, key, entry.Fields())
	}
	if err != nil {
		return models.ScheduleEntry{}, models.StoreFailure("put", err)
	}

	metrics.ScheduleWrites.WithLabelValues("upsert").Inc()
	s.log.Debug("schedule upserted", zap.String("key", key), zap.Int64("version", entry.Version), zap.String("by", actor.DisplayName))
	return entry, nil
}

// BulkUpsert writes entry once per day, Monday first, with Date cleared. It
// stops at the first failure and returns how many days were written; those
// writes stay in place.
func (s *Service) BulkUpsert(ctx context.Context, actor models.Actor, entry models.ScheduleEntry, days []string) (int, error) {
	if !actor.CanEdit() {
		return 0, models.ErrForbidden
	}
	selected := map[string]bool{}
	for _, d := range days {
		d = strings.TrimSpace(d)
		if models.WeekdayRank(d) == 0 {
			return 0, models.Invalid("days", "unknown weekday "+d)
		}
		selected[d] = true
	}
	if len(selected) == 0 {
		return 0, models.Invalid("days", "select at least one day")
	}

	written := 0
	for _, d := range models.Weekdays {
		if !selected[d] {
			continue
		}
		e := entry
		e.Day, e.Date = d, ""
		if _, err := s.Upsert(ctx, actor, e, UpsertOptions{}); err != nil {
			s.log.Warn("bulk schedule upsert stopped", zap.String("day", d), zap.Int("written", written), zap.Error(err))
			return written, &BulkError{Written: written, Day: d, Err: err}
		}
		written++
	}
	metrics.ScheduleWrites.WithLabelValues("bulk").Inc()
	return written, nil
}

// Delete removes the entry stored under key. Missing keys are not an error.
func (s *Service) Delete(ctx context.Context, actor models.Actor, key string) error {
	if !actor.CanEdit() {
		return models.ErrForbidden
	}
	if err := s.store.Delete(ctx, Collection, key); err != nil {
		return models.StoreFailure("delete", err)
	}
	metrics.ScheduleWrites.WithLabelValues("delete").Inc()
	return nil
}

// Clear deletes every entry matching filter and returns how many went.
// Admins only.
func (s *Service) Clear(ctx context.Context, actor models.Actor, filter Filter) (int, error) {
	if !actor.IsAdmin() {
		return 0, models.ErrForbidden
	}
	docs, err := s.store.Query(ctx, Collection, filter.store())
	if err != nil {
		return 0, models.StoreFailure("query", err)
	}
	removed := 0
	for _, d := range docs {
		if err := s.store.Delete(ctx, Collection, d.Key); err != nil {
			return removed, models.StoreFailure("delete", err)
		}
		removed++
	}
	metrics.ScheduleWrites.WithLabelValues("clear").Inc()
	s.log.Info("schedules cleared", zap.Int("removed", removed), zap.String("by", actor.DisplayName))
	return removed, nil
}

// Get returns repo.ErrNotFound when the slot is empty.
func (s *Service) Get(ctx context.Context, key string) (models.ScheduleEntry, error) {
	doc, err := s.store.Get(ctx, Collection, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.ScheduleEntry{}, repo.ErrNotFound
		}
		return models.ScheduleEntry{}, models.StoreFailure("get", err)
	}
	return models.ScheduleFromDocument(doc), nil
}

// List returns the entries matching every set field of filter, in view order.
func (s *Service) List(ctx context.Context, filter Filter) ([]models.ScheduleEntry, error) {
	docs, err := s.store.Query(ctx, Collection, filter.store())
	if err != nil {
		return nil, models.StoreFailure("query", err)
	}
	entries := decode(docs)
	Sort(entries)
	return entries, nil
}

// ForDate returns what actually happens on one calendar day: the recurring
// entries for its weekday, with any entry dated that day replacing the
// recurring entry of the same class and start time.
func (s *Service) ForDate(ctx context.Context, filter Filter, date string) ([]models.ScheduleEntry, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, models.Invalid("date", "must be a calendar date (YYYY-MM-DD)")
	}
	date = day.Format(dateLayout)

	dated := filter
	dated.Day, dated.Date = "", date
	docs, err := s.store.Query(ctx, Collection, dated.store())
	if err != nil {
		return nil, models.StoreFailure("query", err)
	}
	out := decode(docs)

	weekday := day.Weekday().String()
	if models.WeekdayRank(weekday) > 0 {
		recurring := filter
		recurring.Day, recurring.Date = weekday, ""
		docs, err := s.store.Query(ctx, Collection, recurring.store())
		if err != nil {
			return nil, models.StoreFailure("query", err)
		}
		taken := map[string]bool{}
		for _, e := range out {
			taken[slotOf(e)] = true
		}
		for _, e := range decode(docs) {
			if !taken[slotOf(e)] {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return startMinutes(out[i]) < startMinutes(out[j]) })
	return out, nil
}

// slotOf identifies a class period independent of what is taught in it.
func slotOf(e models.ScheduleEntry) string {
	start := stripSpaces(e.StartTime)
	if m, ok := clockMinutes(start); ok {
		start = time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("1504")
	}
	return stripSpaces(e.Class) + "_" + start
}

func decode(docs []repo.Document) []models.ScheduleEntry {
	out := make([]models.ScheduleEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ScheduleFromDocument(d))
	}
	return out
}
