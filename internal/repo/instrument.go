package repo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mghazyfawazh/schoolportal/internal/metrics"
)

type instrumented struct {
	next Store
}

type instrumentedVersioned struct {
	instrumented
	versioned VersionedPutter
}

// Instrument records call counts and latency for every store operation.
// The conditional write capability of next is preserved.
func Instrument(next Store) Store {
	base := instrumented{next: next}
	if vp, ok := next.(VersionedPutter); ok {
		return &instrumentedVersioned{instrumented: base, versioned: vp}
	}
	return &base
}

func observe(collection, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrVersionMismatch):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	metrics.StoreOperations.WithLabelValues(collection, op, outcome).Inc()
}

func (s *instrumented) Put(ctx context.Context, collection, key string, fields Fields) error {
	timer := prometheus.NewTimer(metrics.StoreDuration.WithLabelValues("put"))
	defer timer.ObserveDuration()
	err := s.next.Put(ctx, collection, key, fields)
	observe(collection, "put", err)
	return err
}

func (s *instrumented) Get(ctx context.Context, collection, key string) (Document, error) {
	timer := prometheus.NewTimer(metrics.StoreDuration.WithLabelValues("get"))
	defer timer.ObserveDuration()
	doc, err := s.next.Get(ctx, collection, key)
	observe(collection, "get", err)
	return doc, err
}

func (s *instrumented) Delete(ctx context.Context, collection, key string) error {
	timer := prometheus.NewTimer(metrics.StoreDuration.WithLabelValues("delete"))
	defer timer.ObserveDuration()
	err := s.next.Delete(ctx, collection, key)
	observe(collection, "delete", err)
	return err
}

func (s *instrumented) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	timer := prometheus.NewTimer(metrics.StoreDuration.WithLabelValues("query"))
	defer timer.ObserveDuration()
	docs, err := s.next.Query(ctx, collection, filter)
	observe(collection, "query", err)
	return docs, err
}

func (s *instrumented) Subscribe(ctx context.Context, collection string, filter Filter, onSnapshot func([]Document), onError func(error)) (Unsubscribe, error) {
	unsub, err := s.next.Subscribe(ctx, collection, filter, onSnapshot, func(err error) {
		observe(collection, "stream", err)
		onError(err)
	})
	observe(collection, "subscribe", err)
	return unsub, err
}

func (s *instrumentedVersioned) PutIfVersion(ctx context.Context, collection, key string, fields Fields, expected int64) error {
	timer := prometheus.NewTimer(metrics.StoreDuration.WithLabelValues("put_if_version"))
	defer timer.ObserveDuration()
	err := s.versioned.PutIfVersion(ctx, collection, key, fields, expected)
	observe(collection, "put_if_version", err)
	return err
}
