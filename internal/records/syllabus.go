package records

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/aggregate"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

type SyllabusInput struct {
	Class                   string `json:"class" validate:"required,max=60"`
	Batch                   string `json:"batch" validate:"required,max=60"`
	Subject                 string `json:"subject" validate:"required,max=120"`
	Topic                   string `json:"topic" validate:"required,max=200"`
	CompletionStatus        int    `json:"completionStatus" validate:"gte=0,lte=100"`
	Description             string `json:"description" validate:"max=2000"`
	EstimatedCompletionDate string `json:"estimatedCompletionDate" validate:"omitempty,datetime=2006-01-02"`
}

type SyllabusFilter struct {
	Class   string `form:"class"`
	Batch   string `form:"batch"`
	Subject string `form:"subject"`
}

func (f SyllabusFilter) store() repo.Filter {
	return filterOf(map[string]string{
		"class":   f.Class,
		"batch":   f.Batch,
		"subject": f.Subject,
	})
}

// Progress is the average completion per subject and across all topics.
type Progress struct {
	Subjects aggregate.Averages `json:"subjects"`
	Overall  float64            `json:"overall"`
	Topics   int                `json:"topics"`
}

// SyllabusKey identifies one topic of a subject taught to a class and batch.
func SyllabusKey(class, batch, subject, topic string) string {
	return compact(class) + "_" + compact(batch) + "_" + compact(subject) + "_" + compact(topic)
}

type Syllabus struct {
	base
}

func NewSyllabus(store repo.Store, log *zap.Logger, opts ...Option) *Syllabus {
	return &Syllabus{base: newBase(store, log, opts)}
}

// Upsert records the completion of a topic, replacing the previous status.
func (s *Syllabus) Upsert(ctx context.Context, actor models.Actor, in SyllabusInput) (models.SyllabusItem, error) {
	if !actor.CanEdit() {
		return models.SyllabusItem{}, models.ErrForbidden
	}
	trim(&in.Class, &in.Batch, &in.Subject, &in.Topic, &in.Description, &in.EstimatedCompletionDate)
	if err := check(in); err != nil {
		return models.SyllabusItem{}, err
	}
	item := models.SyllabusItem{
		Key:                     SyllabusKey(in.Class, in.Batch, in.Subject, in.Topic),
		Class:                   in.Class,
		Batch:                   in.Batch,
		Subject:                 in.Subject,
		Topic:                   in.Topic,
		CompletionStatus:        in.CompletionStatus,
		Description:             in.Description,
		EstimatedCompletionDate: in.EstimatedCompletionDate,
		UpdatedAt:               s.stamp(),
		UpdatedBy:               actor.DisplayName,
	}
	if err := s.store.Put(ctx, SyllabusCollection, item.Key, item.Fields()); err != nil {
		return models.SyllabusItem{}, models.StoreFailure("put", err)
	}
	return item, nil
}

// Delete removes a topic. Missing keys are not an error.
func (s *Syllabus) Delete(ctx context.Context, actor models.Actor, key string) error {
	if !actor.CanEdit() {
		return models.ErrForbidden
	}
	if err := s.store.Delete(ctx, SyllabusCollection, key); err != nil {
		return models.StoreFailure("delete", err)
	}
	return nil
}

// List returns matching topics by subject, then topic.
func (s *Syllabus) List(ctx context.Context, filter SyllabusFilter) ([]models.SyllabusItem, error) {
	docs, err := s.store.Query(ctx, SyllabusCollection, filter.store())
	if err != nil {
		return nil, models.StoreFailure("query", err)
	}
	out := make([]models.SyllabusItem, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.SyllabusFromDocument(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Topic < out[j].Topic
	})
	return out, nil
}

func (s *Syllabus) Progress(ctx context.Context, filter SyllabusFilter) (Progress, error) {
	items, err := s.List(ctx, filter)
	if err != nil {
		return Progress{}, err
	}
	completion := func(it models.SyllabusItem) aggregate.Score {
		return aggregate.Score{Marks: float64(it.CompletionStatus), OutOf: 100}
	}
	return Progress{
		Subjects: aggregate.GroupAverage(items, func(it models.SyllabusItem) string { return it.Subject }, completion),
		Overall:  aggregate.MeanPercentage(items, completion),
		Topics:   len(items),
	}, nil
}
