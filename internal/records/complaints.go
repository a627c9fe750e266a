package records

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

const maxBucketAttempts = 5

type ComplaintInput struct {
	StudentName string `json:"studentName" validate:"required,max=120"`
	Class       string `json:"class" validate:"required,max=60"`
	Batch       string `json:"batch" validate:"required,max=60"`
	Text        string `json:"text" validate:"required,max=2000"`
	Severity    string `json:"severity" validate:"required"`
}

type ComplaintFilter struct {
	StudentName string `form:"studentName"`
	Class       string `form:"class"`
	Batch       string `form:"batch"`
}

func (f ComplaintFilter) store() repo.Filter {
	return filterOf(map[string]string{
		"studentName": f.StudentName,
		"class":       f.Class,
		"batch":       f.Batch,
	})
}

// FiledComplaint is a complaint together with the student it concerns.
type FiledComplaint struct {
	models.Complaint
	Bucket      string `json:"bucket"`
	StudentName string `json:"studentName"`
	Class       string `json:"class"`
	Batch       string `json:"batch"`
}

// BucketKey names the bucket holding every complaint about one student of a
// class and batch.
func BucketKey(studentName, class, batch string) string {
	return compact(studentName) + "_" + compact(class) + "_" + compact(batch)
}

type Complaints struct {
	base
}

func NewComplaints(store repo.Store, log *zap.Logger, opts ...Option) *Complaints {
	return &Complaints{base: newBase(store, log, opts)}
}

// File appends a complaint to the student's bucket. Concurrent filings against
// the same bucket are retried, so neither is lost.
func (c *Complaints) File(ctx context.Context, actor models.Actor, in ComplaintInput) (FiledComplaint, error) {
	if !actor.CanEdit() {
		return FiledComplaint{}, models.ErrForbidden
	}
	trim(&in.StudentName, &in.Class, &in.Batch, &in.Text, &in.Severity)
	if err := check(in); err != nil {
		return FiledComplaint{}, err
	}
	severity, ok := models.ParseSeverity(in.Severity)
	if !ok {
		return FiledComplaint{}, models.Invalid("severity", "severity must be one of Low, Medium, High, Critical")
	}

	key := BucketKey(in.StudentName, in.Class, in.Batch)
	entry := models.Complaint{
		ID:         c.newID(),
		Text:       in.Text,
		Severity:   severity,
		ReportedBy: actor.DisplayName,
		Timestamp:  c.stamp().UnixMilli(),
	}
	err := c.update(ctx, key, in, func(b *models.ComplaintBucket) bool {
		b.Complaints = append(b.Complaints, entry)
		return true
	})
	if err != nil {
		return FiledComplaint{}, err
	}
	c.log.Info("complaint filed", zap.String("bucket", key), zap.String("severity", string(severity)), zap.String("by", actor.DisplayName))
	return FiledComplaint{Complaint: entry, Bucket: key, StudentName: in.StudentName, Class: in.Class, Batch: in.Batch}, nil
}

// ForStudent returns one student's complaints, most severe and newest first.
// Students may only read their own.
func (c *Complaints) ForStudent(ctx context.Context, actor models.Actor, studentName, class, batch string) ([]FiledComplaint, error) {
	if actor.Role == models.RoleStudent && !strings.EqualFold(strings.TrimSpace(studentName), strings.TrimSpace(actor.DisplayName)) {
		return nil, models.ErrForbidden
	}
	doc, err := c.store.Get(ctx, ComplaintsCollection, BucketKey(studentName, class, batch))
	if errors.Is(err, repo.ErrNotFound) {
		return []FiledComplaint{}, nil
	}
	if err != nil {
		return nil, models.StoreFailure("get", err)
	}
	out := flatten(models.ComplaintBucketFromDocument(doc))
	sortComplaints(out)
	return out, nil
}

// List returns every complaint in the matching buckets. Staff only.
func (c *Complaints) List(ctx context.Context, actor models.Actor, filter ComplaintFilter) ([]FiledComplaint, error) {
	if !actor.CanEdit() {
		return nil, models.ErrForbidden
	}
	docs, err := c.store.Query(ctx, ComplaintsCollection, filter.store())
	if err != nil {
		return nil, models.StoreFailure("query", err)
	}
	out := []FiledComplaint{}
	for _, d := range docs {
		out = append(out, flatten(models.ComplaintBucketFromDocument(d))...)
	}
	sortComplaints(out)
	return out, nil
}

// Remove drops one complaint from a bucket. Removing a complaint that is not
// there is not an error. Admins only.
func (c *Complaints) Remove(ctx context.Context, actor models.Actor, bucket, id string) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	if _, err := c.store.Get(ctx, ComplaintsCollection, bucket); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return models.StoreFailure("get", err)
	}
	err := c.update(ctx, bucket, ComplaintInput{}, func(b *models.ComplaintBucket) bool {
		kept := b.Complaints[:0]
		for _, item := range b.Complaints {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		changed := len(kept) != len(b.Complaints)
		b.Complaints = kept
		return changed
	})
	if err != nil {
		return err
	}
	c.log.Info("complaint removed", zap.String("bucket", bucket), zap.String("id", id), zap.String("by", actor.DisplayName))
	return nil
}

// update runs a read-modify-write of one bucket, retrying when another
// writer got there first. mutate reports whether anything changed.
func (c *Complaints) update(ctx context.Context, key string, owner ComplaintInput, mutate func(*models.ComplaintBucket) bool) error {
	for attempt := 0; attempt < maxBucketAttempts; attempt++ {
		bucket := models.ComplaintBucket{Key: key, StudentName: owner.StudentName, Class: owner.Class, Batch: owner.Batch}
		doc, err := c.store.Get(ctx, ComplaintsCollection, key)
		switch {
		case err == nil:
			bucket = models.ComplaintBucketFromDocument(doc)
		case !errors.Is(err, repo.ErrNotFound):
			return models.StoreFailure("get", err)
		}

		expected := bucket.Version
		if !mutate(&bucket) {
			return nil
		}
		bucket.Version = expected + 1

		vp, ok := c.store.(repo.VersionedPutter)
		if !ok {
			return models.StoreFailure("put", c.store.Put(ctx, ComplaintsCollection, key, bucket.Fields()))
		}
		err = vp.PutIfVersion(ctx, ComplaintsCollection, key, bucket.Fields(), expected)
		if errors.Is(err, repo.ErrVersionMismatch) {
			c.log.Debug("complaint bucket changed, retrying", zap.String("bucket", key), zap.Int("attempt", attempt+1))
			continue
		}
		return models.StoreFailure("put", err)
	}
	return errors.Wrapf(ErrContended, "bucket %s", key)
}

func flatten(b models.ComplaintBucket) []FiledComplaint {
	out := make([]FiledComplaint, 0, len(b.Complaints))
	for _, item := range b.Complaints {
		out = append(out, FiledComplaint{Complaint: item, Bucket: b.Key, StudentName: b.StudentName, Class: b.Class, Batch: b.Batch})
	}
	return out
}

func sortComplaints(items []FiledComplaint) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Severity.Rank(), items[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return items[i].Timestamp > items[j].Timestamp
	})
}
