package records

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/aggregate"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

// ResultInput is a score as entered by staff. Marks above outOf are
// accepted; negative values are not.
type ResultInput struct {
	StudentName string  `json:"studentName" validate:"required,max=120"`
	Class       string  `json:"class" validate:"required,max=60"`
	Batch       string  `json:"batch" validate:"max=60"`
	Subject     string  `json:"subject" validate:"required,max=120"`
	Marks       float64 `json:"marks" validate:"gte=0"`
	OutOf       float64 `json:"outOf" validate:"gte=0"`
	TestDate    string  `json:"testDate" validate:"required,datetime=2006-01-02"`
	Remarks     string  `json:"remarks" validate:"max=1000"`
}

type ResultFilter struct {
	StudentName string `form:"studentName"`
	Class       string `form:"class"`
	Batch       string `form:"batch"`
	Subject     string `form:"subject"`
}

func (f ResultFilter) store() repo.Filter {
	return filterOf(map[string]string{
		"studentName": f.StudentName,
		"class":       f.Class,
		"batch":       f.Batch,
		"subject":     f.Subject,
	})
}

type Results struct {
	base
}

func NewResults(store repo.Store, log *zap.Logger, opts ...Option) *Results {
	return &Results{base: newBase(store, log, opts)}
}

// Add stores a new result under a fresh id. Results are never updated.
func (r *Results) Add(ctx context.Context, actor models.Actor, in ResultInput) (models.ResultRecord, error) {
	if !actor.CanEdit() {
		return models.ResultRecord{}, models.ErrForbidden
	}
	trim(&in.StudentName, &in.Class, &in.Batch, &in.Subject, &in.TestDate, &in.Remarks)
	if err := check(in); err != nil {
		return models.ResultRecord{}, err
	}

	rec := models.ResultRecord{
		ID:          r.newID(),
		StudentName: in.StudentName,
		Class:       in.Class,
		Batch:       in.Batch,
		Subject:     in.Subject,
		Marks:       in.Marks,
		OutOf:       in.OutOf,
		TestDate:    in.TestDate,
		Remarks:     in.Remarks,
		CreatedAt:   r.stamp(),
		CreatedBy:   actor.DisplayName,
	}
	if err := r.store.Put(ctx, ResultsCollection, rec.ID, rec.Fields()); err != nil {
		return models.ResultRecord{}, models.StoreFailure("put", err)
	}
	r.log.Debug("result added", zap.String("id", rec.ID), zap.String("student", rec.StudentName), zap.String("subject", rec.Subject))
	return rec, nil
}

// List returns matching results, newest test first, then by student name.
func (r *Results) List(ctx context.Context, filter ResultFilter) ([]models.ResultRecord, error) {
	docs, err := r.store.Query(ctx, ResultsCollection, filter.store())
	if err != nil {
		return nil, models.StoreFailure("query", err)
	}
	out := make([]models.ResultRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ResultFromDocument(d))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TestDate != out[j].TestDate {
			return out[i].TestDate > out[j].TestDate
		}
		return out[i].StudentName < out[j].StudentName
	})
	return out, nil
}

func score(r models.ResultRecord) aggregate.Score {
	return aggregate.Score{Marks: r.Marks, OutOf: r.OutOf}
}

// Leaderboard ranks students by total marks over total outOf across the
// matching results.
func (r *Results) Leaderboard(ctx context.Context, filter ResultFilter) ([]aggregate.Ranked, error) {
	results, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return aggregate.Rank(results, func(rec models.ResultRecord) string { return rec.StudentName }, score), nil
}

// SubjectAverages is the mean percentage per subject of the matching results.
func (r *Results) SubjectAverages(ctx context.Context, filter ResultFilter) (aggregate.Averages, error) {
	results, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return aggregate.GroupAverage(results, func(rec models.ResultRecord) string { return rec.Subject }, score), nil
}

// Trend compares a student's earlier and later results. The filter must name
// the student.
func (r *Results) Trend(ctx context.Context, filter ResultFilter) (aggregate.Trend, error) {
	if strings.TrimSpace(filter.StudentName) == "" {
		return aggregate.Trend{}, models.Invalid("studentName", "studentName is a required field")
	}
	results, err := r.List(ctx, filter)
	if err != nil {
		return aggregate.Trend{}, err
	}
	return aggregate.SplitTrend(results, testDate, score), nil
}

// testDate puts unparseable dates first.
func testDate(rec models.ResultRecord) time.Time {
	t, err := time.Parse(dateLayout, rec.TestDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
