package schedule

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/metrics"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
)

type State int

const (
	StateIdle State = iota
	StateSubscribing
	StateLive
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Subscription keeps a live View of the entries matching a filter. Every
// store snapshot replaces the view wholesale. Error and Closed are terminal;
// to recover, Close and subscribe again.
type Subscription struct {
	log *zap.Logger

	mu          sync.Mutex
	state       State
	err         error
	current     *View
	seq         uint64
	unsubscribe repo.Unsubscribe
	updates     chan View
	done        chan struct{}
}

func newSubscription(log *zap.Logger) *Subscription {
	return &Subscription{
		log:     log,
		state:   StateIdle,
		updates: make(chan View, 1),
		done:    make(chan struct{}),
	}
}

// Subscribe starts a live view. The caller must Close it when done with it,
// typically with defer right after the call.
func (s *Service) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	sub := newSubscription(s.log.With(zap.Any("filter", filter)))
	sub.mu.Lock()
	sub.state = StateSubscribing
	sub.mu.Unlock()

	unsub, err := s.store.Subscribe(ctx, Collection, filter.store(), sub.onSnapshot, sub.onError)
	if err != nil {
		sub.mu.Lock()
		sub.state, sub.err = StateError, err
		close(sub.done)
		sub.mu.Unlock()
		return nil, models.StoreFailure("subscribe", err)
	}
	metrics.ActiveSubscriptions.Inc()

	sub.mu.Lock()
	if sub.state == StateError || sub.state == StateClosed {
		sub.mu.Unlock()
		unsub()
		return sub, nil
	}
	sub.unsubscribe = unsub
	sub.mu.Unlock()
	return sub, nil
}

func (sub *Subscription) onSnapshot(docs []repo.Document) {
	view := BuildView(decode(docs))

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.state == StateError || sub.state == StateClosed {
		return
	}
	sub.seq++
	view.Sequence = sub.seq
	sub.current = &view
	if sub.state == StateSubscribing {
		sub.state = StateLive
		sub.log.Debug("schedule subscription live", zap.Int("entries", len(view.Entries)))
	}

	select {
	case <-sub.updates:
	default:
	}
	sub.updates <- view
	metrics.SnapshotsPublished.Inc()
}

func (sub *Subscription) onError(err error) {
	sub.mu.Lock()
	if sub.state == StateError || sub.state == StateClosed {
		sub.mu.Unlock()
		return
	}
	sub.state, sub.err = StateError, models.StoreFailure("subscribe", err)
	close(sub.done)
	unsub := sub.unsubscribe
	sub.unsubscribe = nil
	sub.mu.Unlock()

	metrics.ActiveSubscriptions.Dec()
	sub.log.Warn("schedule subscription failed", zap.Error(err))
	if unsub != nil {
		unsub()
	}
}

// Close stops delivery at once and releases the store stream. It is safe to
// call more than once and after an error.
func (sub *Subscription) Close() {
	sub.mu.Lock()
	if sub.state == StateError || sub.state == StateClosed {
		sub.mu.Unlock()
		return
	}
	sub.state = StateClosed
	close(sub.done)
	unsub := sub.unsubscribe
	sub.unsubscribe = nil
	sub.mu.Unlock()

	metrics.ActiveSubscriptions.Dec()
	if unsub != nil {
		unsub()
	}
}

func (sub *Subscription) State() State {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.state
}

// Err is the terminal error once State is StateError.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Current returns the latest published view; false before the first snapshot.
func (sub *Subscription) Current() (View, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.current == nil {
		return View{}, false
	}
	return *sub.current, true
}

// Updates yields published views. Only the newest undelivered view is kept,
// so a slow reader skips intermediate snapshots instead of stalling delivery.
func (sub *Subscription) Updates() <-chan View {
	return sub.updates
}

// Done is closed when the subscription reaches Error or Closed.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}
