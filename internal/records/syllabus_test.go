package records_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/records"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

func topic(subject, name string, done int) records.SyllabusInput {
	return records.SyllabusInput{Class: "Class 10", Batch: "A", Subject: subject, Topic: name, CompletionStatus: done}
}

func TestSyllabusUpsertReplacesTopic(t *testing.T) {
	svc := records.NewSyllabus(repo.NewMemory(), nil, testOptions()...)
	ctx := context.Background()

	item, err := svc.Upsert(ctx, teacher, topic("Physics", "Optics", 40))
	require.NoError(t, err)
	assert.Equal(t, "Class10_A_Physics_Optics", item.Key)

	_, err = svc.Upsert(ctx, teacher, topic("Physics", " Optics ", 75))
	require.NoError(t, err)

	items, err := svc.List(ctx, records.SyllabusFilter{Class: "Class 10"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 75, items[0].CompletionStatus)
	assert.Equal(t, "Mr. Sharma", items[0].UpdatedBy)
}

func TestSyllabusValidation(t *testing.T) {
	svc := records.NewSyllabus(repo.NewMemory(), nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, teacher, topic("Physics", "Optics", 101))
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "completionStatus", verr.Field)

	in := topic("Physics", "Optics", 10)
	in.EstimatedCompletionDate = "next week"
	_, err = svc.Upsert(ctx, teacher, in)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "estimatedCompletionDate", verr.Field)

	_, err = svc.Upsert(ctx, student, topic("Physics", "Optics", 10))
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestSyllabusProgress(t *testing.T) {
	svc := records.NewSyllabus(repo.NewMemory(), nil, testOptions()...)
	ctx := context.Background()
	for _, in := range []records.SyllabusInput{
		topic("Physics", "Optics", 100),
		topic("Physics", "Waves", 50),
		topic("Math", "Algebra", 30),
	} {
		_, err := svc.Upsert(ctx, teacher, in)
		require.NoError(t, err)
	}

	p, err := svc.Progress(ctx, records.SyllabusFilter{Class: "Class 10", Batch: "A"})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Topics)
	means := p.Subjects.Map()
	assert.InDelta(t, 75, means["Physics"], 1e-9)
	assert.InDelta(t, 30, means["Math"], 1e-9)
	assert.InDelta(t, 60, p.Overall, 1e-9)

	empty, err := svc.Progress(ctx, records.SyllabusFilter{Class: "Class 12"})
	require.NoError(t, err)
	assert.Zero(t, empty.Topics)
	assert.Zero(t, empty.Overall)
	assert.Empty(t, empty.Subjects)
}

func TestSyllabusDelete(t *testing.T) {
	svc := records.NewSyllabus(repo.NewMemory(), nil)
	ctx := context.Background()
	item, err := svc.Upsert(ctx, teacher, topic("Math", "Algebra", 30))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, student, item.Key), models.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, teacher, item.Key))
	require.NoError(t, svc.Delete(ctx, teacher, item.Key))

	items, err := svc.List(ctx, records.SyllabusFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}
