package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultFeedURL        = "wss://pumpportal.fun/api/data"
	DefaultReconnectDelay = 5 * time.Second
)

// ErrFeedDisconnected is reported to the reconnect loop when a session ends.
// Subscribers never see it.
var ErrFeedDisconnected = errors.New("listing feed disconnected")

// State is the connection state of the feed.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// FeedConfig configures a Feed.
type FeedConfig struct {
	URL            string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
	Logger         *zap.Logger
	Clock          func() time.Time
}

// Feed keeps one websocket session to the listing stream and fans every
// listing out to its subscribers. Subscriptions survive reconnects.
type Feed struct {
	url            string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	logger         *zap.Logger
	now            func() time.Time

	mu   sync.RWMutex
	subs map[string]func(TokenListing)

	state atomic.Int32
}

// NewFeed creates a feed. Call Run to connect.
func NewFeed(cfg FeedConfig) *Feed {
	f := &Feed{
		url:            cfg.URL,
		reconnectDelay: cfg.ReconnectDelay,
		dialer:         cfg.Dialer,
		logger:         cfg.Logger,
		now:            cfg.Clock,
		subs:           make(map[string]func(TokenListing)),
	}
	if f.url == "" {
		f.url = DefaultFeedURL
	}
	if f.reconnectDelay <= 0 {
		f.reconnectDelay = DefaultReconnectDelay
	}
	if f.dialer == nil {
		f.dialer = websocket.DefaultDialer
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	f.logger = f.logger.Named("feed")
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Subscribe registers cb for every listing received from now on and returns
// its subscription id.
func (f *Feed) Subscribe(cb func(TokenListing)) string {
	id := uuid.New().String()

	f.mu.Lock()
	f.subs[id] = cb
	f.mu.Unlock()

	f.logger.Debug("Subscriber added", zap.String("subscription_id", id))
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (f *Feed) Unsubscribe(id string) {
	f.mu.Lock()
	delete(f.subs, id)
	f.mu.Unlock()
}

// State reports the current connection state.
func (f *Feed) State() State {
	return State(f.state.Load())
}

// CollectFor gathers the listings received during d. It returns early with
// what it has if ctx is cancelled.
func (f *Feed) CollectFor(ctx context.Context, d time.Duration) []TokenListing {
	var (
		mu  sync.Mutex
		out []TokenListing
	)
	id := f.Subscribe(func(l TokenListing) {
		mu.Lock()
		out = append(out, l)
		mu.Unlock()
	})
	defer f.Unsubscribe(id)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]TokenListing(nil), out...)
}

// Window returns a Source collecting one window of length d per pass.
func (f *Feed) Window(d time.Duration) Source {
	return SourceFunc(func(ctx context.Context) []TokenListing {
		return f.CollectFor(ctx, d)
	})
}

// Run connects and keeps reconnecting after a constant delay until ctx is
// cancelled. It always returns ctx's error.
func (f *Feed) Run(ctx context.Context) error {
	notify := func(err error, next time.Duration) {
		f.logger.Warn("Listing feed lost, reconnecting",
			zap.Error(err),
			zap.Duration("retry_in", next))
	}

	operation := func() (struct{}, error) {
		err := f.session(ctx)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		return struct{}{}, fmt.Errorf("%w: %v", ErrFeedDisconnected, err)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(f.reconnectDelay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))

	f.state.Store(int32(StateDisconnected))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (f *Feed) session(ctx context.Context) error {
	f.state.Store(int32(StateConnecting))
	defer f.state.Store(int32(StateDisconnected))

	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"method": "subscribeNewToken"}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.state.Store(int32(StateConnected))
	f.logger.Info("Listing feed connected", zap.String("url", f.url))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		listing, err := ParseListing(msg, f.now())
		switch {
		case errors.Is(err, errNoMint):
			f.logger.Debug("Control message", zap.ByteString("payload", msg))
			continue
		case err != nil:
			f.logger.Warn("Dropping malformed listing", zap.Error(err))
			continue
		}

		f.dispatch(listing)
	}
}

func (f *Feed) dispatch(l TokenListing) {
	f.mu.RLock()
	subs := make(map[string]func(TokenListing), len(f.subs))
	for id, cb := range f.subs {
		subs[id] = cb
	}
	f.mu.RUnlock()

	for id, cb := range subs {
		f.deliver(id, cb, l)
	}
}

func (f *Feed) deliver(id string, cb func(TokenListing), l TokenListing) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Subscriber panicked",
				zap.String("subscription_id", id),
				zap.String("token_mint", l.Mint),
				zap.Any("panic", r))
		}
	}()
	cb(l)
}
