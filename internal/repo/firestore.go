package repo

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore maps collections and keys one-to-one onto Firestore collections
// and document IDs.
type Firestore struct {
	Client *firestore.Client
}

var (
	_ Store           = (*Firestore)(nil)
	_ VersionedPutter = (*Firestore)(nil)
)

func NewFirestore(ctx context.Context, projectID string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}
	return &Firestore{Client: client}, nil
}

func (r *Firestore) Close() error {
	return r.Client.Close()
}

func (r *Firestore) Put(ctx context.Context, collection, key string, fields Fields) error {
	_, err := r.Client.Collection(collection).Doc(key).Set(ctx, map[string]interface{}(fields.Clone()))
	return errors.Wrapf(err, "firestore set %s/%s", collection, key)
}

func (r *Firestore) PutIfVersion(ctx context.Context, collection, key string, fields Fields, expected int64) error {
	ref := r.Client.Collection(collection).Doc(key)
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			current = Fields(snap.Data()).Int(VersionField)
		case status.Code(err) == codes.NotFound:
		default:
			return err
		}
		if current != expected {
			return ErrVersionMismatch
		}
		return tx.Set(ref, map[string]interface{}(fields.Clone()))
	})
	if errors.Is(err, ErrVersionMismatch) {
		return ErrVersionMismatch
	}
	return errors.Wrapf(err, "firestore transaction %s/%s", collection, key)
}

func (r *Firestore) Get(ctx context.Context, collection, key string) (Document, error) {
	snap, err := r.Client.Collection(collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, errors.Wrapf(err, "firestore get %s/%s", collection, key)
	}
	return fromSnapshot(snap), nil
}

func (r *Firestore) Delete(ctx context.Context, collection, key string) error {
	_, err := r.Client.Collection(collection).Doc(key).Delete(ctx)
	return errors.Wrapf(err, "firestore delete %s/%s", collection, key)
}

func (r *Firestore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	iter := r.query(collection, filter).Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "firestore query %s", collection)
		}
		out = append(out, fromSnapshot(snap))
	}
	return out, nil
}

func (r *Firestore) Subscribe(ctx context.Context, collection string, filter Filter, onSnapshot func([]Document), onError func(error)) (Unsubscribe, error) {
	sctx, cancel := context.WithCancel(ctx)
	it := r.query(collection, filter).Snapshots(sctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if sctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				onError(errors.Wrapf(err, "firestore snapshots %s", collection))
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				if sctx.Err() == nil {
					onError(errors.Wrapf(err, "firestore snapshot read %s", collection))
				}
				return
			}
			docs := make([]Document, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, fromSnapshot(snap))
			}
			if sctx.Err() != nil {
				return
			}
			onSnapshot(docs)
		}
	}()

	return Unsubscribe(cancel), nil
}

func (r *Firestore) query(collection string, filter Filter) firestore.Query {
	q := r.Client.Collection(collection).Query
	for _, k := range filter.Keys() {
		q = q.Where(k, "==", filter[k])
	}
	return q
}

func fromSnapshot(snap *firestore.DocumentSnapshot) Document {
	return Document{Key: snap.Ref.ID, Fields: Fields(snap.Data()).Clone()}
}
