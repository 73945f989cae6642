package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launch-trader/internal/discovery"
	"github.com/rovshanmuradov/launch-trader/internal/executor"
	"github.com/rovshanmuradov/launch-trader/internal/price"
	"github.com/rovshanmuradov/launch-trader/internal/snapshot"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeOracle struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   map[string]error
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{prices: map[string]float64{}, fail: map[string]error{}}
}

func (o *fakeOracle) set(mint string, p float64) {
	o.mu.Lock()
	o.prices[mint] = p
	o.mu.Unlock()
}

func (o *fakeOracle) GetPrice(_ context.Context, mint string) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail[mint]; err != nil {
		return 0, err
	}
	p, ok := o.prices[mint]
	if !ok {
		return 0, price.ErrPriceUnavailable
	}
	return p, nil
}

// queueSource hands out each queued batch once.
type queueSource struct {
	mu      sync.Mutex
	batches [][]discovery.TokenListing
	calls   int
}

func (s *queueSource) push(ls ...discovery.TokenListing) {
	s.mu.Lock()
	s.batches = append(s.batches, ls)
	s.mu.Unlock()
}

func (s *queueSource) Collect(context.Context) []discovery.TokenListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.batches) == 0 {
		return nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Buy(ctx context.Context, mint string, amountSol float64) (executor.Fill, error) {
	args := m.Called(ctx, mint, amountSol)
	return args.Get(0).(executor.Fill), args.Error(1)
}

func (m *mockExecutor) Sell(ctx context.Context, mint string, tokenAmount uint64) (executor.Fill, error) {
	args := m.Called(ctx, mint, tokenAmount)
	return args.Get(0).(executor.Fill), args.Error(1)
}

type memStore struct {
	mu    sync.Mutex
	data  map[string][]trade.Record
	saves int
	err   error
}

func newMemStore() *memStore { return &memStore{data: map[string][]trade.Record{}} }

func (s *memStore) Save(_ context.Context, name string, records []trade.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.err != nil {
		return s.err
	}
	s.data[name] = append([]trade.Record(nil), records...)
	return nil
}

func (s *memStore) Load(_ context.Context, name string) ([]trade.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.data[name], nil
}

func (s *memStore) Close() error { return nil }

type harness struct {
	reg    *Registry
	clock  *fakeClock
	oracle *fakeOracle
	source *queueSource
	store  *memStore
	exec   executor.Executor
}

func newHarness(t *testing.T, exec executor.Executor) *harness {
	t.Helper()
	h := &harness{
		clock:  &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)},
		oracle: newFakeOracle(),
		source: &queueSource{},
		store:  newMemStore(),
		exec:   exec,
	}
	if h.exec == nil {
		h.exec = executor.NewPaper(zaptest.NewLogger(t), nil)
	}
	h.reg = NewRegistry(Deps{
		Oracle:   h.oracle,
		Source:   h.source,
		Executor: h.exec,
		Store:    h.store,
		Logger:   zaptest.NewLogger(t),
		Clock:    h.clock.Now,
		Interval: time.Hour, // cycles are driven by hand
	})
	t.Cleanup(func() { _ = h.reg.Shutdown(context.Background()) })
	return h
}

func (h *harness) cycle(t *testing.T, wallet string) {
	t.Helper()
	b, ok := h.reg.bot(wallet)
	require.True(t, ok)
	h.reg.runCycle(context.Background(), b)
}

func listing(mint string) discovery.TokenListing {
	return discovery.TokenListing{Mint: mint, Symbol: "SYM" + mint, Liquidity: 2000}
}

func onlyOne() Overrides {
	return Overrides{Filters: &FilterConfig{MinLiquidity: 1000, MaxTokens: 1}}
}

func TestRegistry_StartIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, StateNotStarted, h.reg.Status("A").State)

	ok, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.reg.Start("A", onlyOne())
	require.NoError(t, err)
	assert.False(t, ok, "second start is a no-op")

	st := h.reg.Status("A")
	assert.Equal(t, StateRunning, st.State)
	require.NotNil(t, st.Config)
	assert.Equal(t, 5, st.Config.Filters.MaxTokens, "config of the running bot is untouched")

	assert.True(t, h.reg.Stop("A"))
	assert.False(t, h.reg.Stop("A"))
	assert.False(t, h.reg.Stop("unknown"))
	assert.Equal(t, StateStopped, h.reg.Status("A").State)
	assert.Nil(t, h.reg.Status("A").Config)
}

func TestRegistry_StartRejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.reg.Start("", Overrides{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = h.reg.Start("A", Overrides{Sell: &SellConfig{TakeProfit: 10}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, StateNotStarted, h.reg.Status("A").State, "rejected before any state change")
}

func TestRegistry_OpensAndClosesOnTakeProfit(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")

	open := h.reg.OpenTrades("A")
	require.Len(t, open, 1)
	assert.Equal(t, 0.01, open[0].EntryPrice)
	assert.Equal(t, 0.01, open[0].Amount)
	assert.Equal(t, "SYMM1", open[0].Symbol)
	assert.Len(t, h.store.data[snapshot.LiveTrades], 1)

	h.oracle.set("M1", 0.0126)
	h.cycle(t, "A")

	assert.Empty(t, h.reg.OpenTrades("A"))
	assert.Empty(t, h.store.data[snapshot.LiveTrades])
}

func TestRegistry_TimeoutWithFlatPrice(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")
	require.Len(t, h.reg.OpenTrades("A"), 1)

	h.clock.Advance(59 * time.Second)
	h.cycle(t, "A")
	require.Len(t, h.reg.OpenTrades("A"), 1)

	h.clock.Advance(2 * time.Second)
	h.cycle(t, "A")
	assert.Empty(t, h.reg.OpenTrades("A"))
}

func TestRegistry_DeadlineFiresWithoutPrice(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")

	h.oracle.fail["M1"] = price.ErrUpstream
	h.clock.Advance(61 * time.Second)
	h.cycle(t, "A")
	assert.Empty(t, h.reg.OpenTrades("A"))
}

func TestRegistry_RespectsMaxConcurrentTrades(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", onlyOne())
	require.NoError(t, err)

	for _, m := range []string{"M1", "M2", "M3"} {
		h.oracle.set(m, 0.01)
	}
	h.source.push(listing("M1"), listing("M2"))
	h.cycle(t, "A")
	require.Len(t, h.reg.OpenTrades("A"), 1)

	h.source.push(listing("M3"))
	h.cycle(t, "A")
	open := h.reg.OpenTrades("A")
	require.Len(t, open, 1, "no second trade while the first is open")
	assert.Equal(t, "M1", open[0].Mint)

	// Closing the first trade frees the slot.
	h.oracle.set("M1", 0.02)
	h.source.push(listing("M3"))
	h.cycle(t, "A")
	open = h.reg.OpenTrades("A")
	require.Len(t, open, 1)
	assert.Equal(t, "M3", open[0].Mint)
}

func TestRegistry_OneTradePerMint(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"), listing("M1"))
	h.cycle(t, "A")
	h.source.push(listing("M1"))
	h.cycle(t, "A")

	assert.Len(t, h.reg.OpenTrades("A"), 1)
}

func TestRegistry_FilteredAndUnpricedListingsAreSkipped(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)

	thin := listing("THIN")
	thin.Liquidity = 10
	h.oracle.set("THIN", 0.01)
	h.oracle.set("OK", 0.01)
	h.source.push(thin, listing("NOPRICE"), listing("OK"))
	h.cycle(t, "A")

	open := h.reg.OpenTrades("A")
	require.Len(t, open, 1)
	assert.Equal(t, "OK", open[0].Mint)
}

func TestRegistry_SellFailureKeepsTradeOpen(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Buy", mock.Anything, "M1", 0.01).Return(executor.Fill{Mint: "M1", AmountSol: 0.02, TokenAmount: 900}, nil)
	exec.On("Sell", mock.Anything, "M1", uint64(900)).Return(executor.Fill{}, executor.ErrExecution).Once()
	exec.On("Sell", mock.Anything, "M1", uint64(900)).Return(executor.Fill{Mint: "M1"}, nil).Once()

	h := newHarness(t, exec)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")
	open := h.reg.OpenTrades("A")
	require.Len(t, open, 1)
	assert.Equal(t, 0.02, open[0].Amount, "fill amount wins over the configured amount")

	h.oracle.set("M1", 0.0084)
	h.cycle(t, "A")
	require.Len(t, h.reg.OpenTrades("A"), 1)

	h.cycle(t, "A")
	assert.Empty(t, h.reg.OpenTrades("A"))
	exec.AssertExpectations(t)
}

func TestRegistry_WalletsSellTheirOwnTokens(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Buy", mock.Anything, "M1", 0.01).Return(executor.Fill{Mint: "M1", AmountSol: 0.01, TokenAmount: 500}, nil).Once()
	exec.On("Buy", mock.Anything, "M1", 0.01).Return(executor.Fill{Mint: "M1", AmountSol: 0.01, TokenAmount: 700}, nil).Once()
	exec.On("Sell", mock.Anything, "M1", uint64(500)).Return(executor.Fill{Mint: "M1"}, nil).Once()
	exec.On("Sell", mock.Anything, "M1", uint64(700)).Return(executor.Fill{Mint: "M1"}, nil).Once()

	h := newHarness(t, exec)
	for _, w := range []string{"A", "B"} {
		_, err := h.reg.Start(w, Overrides{})
		require.NoError(t, err)
	}

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")
	h.source.push(listing("M1"))
	h.cycle(t, "B")
	require.Len(t, h.reg.OpenTrades("A"), 1)
	require.Len(t, h.reg.OpenTrades("B"), 1)
	assert.Equal(t, uint64(500), h.reg.OpenTrades("A")[0].TokenAmount)
	assert.Equal(t, uint64(700), h.reg.OpenTrades("B")[0].TokenAmount)

	h.clock.Advance(61 * time.Second)
	h.cycle(t, "A")
	h.cycle(t, "B")

	assert.Empty(t, h.reg.OpenTrades("A"))
	assert.Empty(t, h.reg.OpenTrades("B"))
	exec.AssertExpectations(t)
}

func TestRegistry_RestoredTradeTimesOut(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Buy", mock.Anything, "M1", 0.01).Return(executor.Fill{Mint: "M1", AmountSol: 0.01, TokenAmount: 500}, nil).Once()

	h := newHarness(t, exec)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)
	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")
	require.Len(t, h.store.data[snapshot.LiveTrades], 1)
	assert.Equal(t, uint64(500), h.store.data[snapshot.LiveTrades][0].TokenAmount)

	// A new process with its own executor has never seen the buy.
	fresh := &mockExecutor{}
	fresh.On("Sell", mock.Anything, "M1", uint64(500)).Return(executor.Fill{Mint: "M1"}, nil).Once()
	reg := NewRegistry(Deps{
		Oracle:   h.oracle,
		Source:   h.source,
		Executor: fresh,
		Store:    h.store,
		Logger:   zaptest.NewLogger(t),
		Clock:    h.clock.Now,
		Interval: time.Hour,
	})
	defer reg.Shutdown(context.Background())
	require.Equal(t, 1, reg.Restore(context.Background()))

	h.clock.Advance(600 * time.Second)
	b, ok := reg.bot("A")
	require.True(t, ok)
	reg.runCycle(context.Background(), b)

	assert.Empty(t, reg.OpenTrades("A"))
	assert.Empty(t, h.store.data[snapshot.LiveTrades])
	fresh.AssertExpectations(t)
}

func TestRegistry_PersistenceFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.store.err = errors.New("disk full")
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")

	assert.Len(t, h.reg.OpenTrades("A"), 1)
	assert.Equal(t, 1, h.store.saves)
}

func TestRegistry_BotsAreIsolated(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)
	_, err = h.reg.Start("B", Overrides{})
	require.NoError(t, err)

	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")

	assert.Len(t, h.reg.OpenTrades("A"), 1)
	assert.Empty(t, h.reg.OpenTrades("B"))
	assert.Equal(t, []string{"A", "B"}, h.reg.Wallets())
}

func TestRegistry_RestoreRebuildsStoppedBots(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)
	h.oracle.set("M1", 0.01)
	h.source.push(listing("M1"))
	h.cycle(t, "A")
	saved := h.store.data[snapshot.LiveTrades]
	require.Len(t, saved, 1)

	fresh := NewRegistry(Deps{
		Oracle:   h.oracle,
		Source:   h.source,
		Executor: h.exec,
		Store:    h.store,
		Logger:   zaptest.NewLogger(t),
		Clock:    h.clock.Now,
		Interval: time.Hour,
	})
	defer fresh.Shutdown(context.Background())

	assert.Equal(t, 1, fresh.Restore(context.Background()))
	assert.Equal(t, StateStopped, fresh.Status("A").State)

	got := fresh.OpenTrades("A")
	require.Len(t, got, 1)
	assert.Equal(t, saved[0].Mint, got[0].Mint)
	assert.Equal(t, saved[0].Amount, got[0].Amount)
	assert.Equal(t, saved[0].EntryPrice, got[0].EntryPrice)
	assert.Equal(t, saved[0].TakeProfitPrice, got[0].TakeProfitPrice)
	assert.Equal(t, saved[0].StopLossPrice, got[0].StopLossPrice)
	assert.Equal(t, saved[0].Deadline, got[0].Deadline)

	// First start of a restored bot applies the supplied configuration.
	ok, err := fresh.Start("A", onlyOne())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, fresh.Status("A").Config.Filters.MaxTokens)
}

func TestRegistry_RestoreToleratesBrokenSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	h.store.err = snapshot.ErrPersistence

	assert.Zero(t, h.reg.Restore(context.Background()))
	assert.Empty(t, h.reg.Wallets())
}

func TestRegistry_Configure(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.reg.Configure("A", onlyOne()))
	_, err := h.reg.Start("A", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.reg.Status("A").Config.Filters.MaxTokens)

	assert.ErrorIs(t, h.reg.Configure("A", Overrides{}), ErrAlreadyRunning)

	h.reg.Stop("A")
	require.NoError(t, h.reg.Configure("A", Overrides{}))
	_, err = h.reg.Start("A", onlyOne())
	require.NoError(t, err)
	assert.Equal(t, 5, h.reg.Status("A").Config.Filters.MaxTokens)
}

func TestRegistry_Discovered(t *testing.T) {
	h := newHarness(t, nil)
	thin := listing("THIN")
	thin.Liquidity = 1

	h.source.push(thin, listing("OK"))
	assert.Len(t, h.reg.Discovered(context.Background(), "nobody"), 2)

	require.NoError(t, h.reg.Configure("A", Overrides{}))
	h.source.push(thin, listing("OK"))
	got := h.reg.Discovered(context.Background(), "A")
	require.Len(t, got, 1)
	assert.Equal(t, "OK", got[0].Mint)
}

func TestRegistry_SchedulerRunsCycles(t *testing.T) {
	oracle := newFakeOracle()
	oracle.set("M1", 0.01)
	src := &queueSource{}
	src.push(listing("M1"))

	reg := NewRegistry(Deps{
		Oracle:   oracle,
		Source:   src,
		Executor: executor.NewPaper(zaptest.NewLogger(t), nil),
		Logger:   zaptest.NewLogger(t),
		Interval: 10 * time.Millisecond,
	})

	_, err := reg.Start("A", Overrides{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(reg.OpenTrades("A")) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.True(t, reg.Stop("A"))
	require.NoError(t, reg.Shutdown(context.Background()))

	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	src.mu.Lock()
	assert.Equal(t, calls, src.calls, "no cycles after shutdown")
	src.mu.Unlock()
}

// gatedSource blocks every Collect until release is closed.
type gatedSource struct {
	entered  chan struct{}
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	first    []discovery.TokenListing
}

func (s *gatedSource) Collect(ctx context.Context) []discovery.TokenListing {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	call := s.calls.Add(1)
	select {
	case s.entered <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	if call == 1 {
		return s.first
	}
	return nil
}

func TestRegistry_StopStartNeverOverlapsCycles(t *testing.T) {
	oracle := newFakeOracle()
	oracle.set("M1", 0.01)
	src := &gatedSource{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		first:   []discovery.TokenListing{listing("M1")},
	}
	store := newMemStore()

	reg := NewRegistry(Deps{
		Oracle:   oracle,
		Source:   src,
		Executor: executor.NewPaper(zaptest.NewLogger(t), nil),
		Store:    store,
		Logger:   zaptest.NewLogger(t),
		Interval: 5 * time.Millisecond,
	})
	defer reg.Shutdown(context.Background())

	ok, err := reg.Start("A", Overrides{})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = reg.Start("A", Overrides{})
	require.NoError(t, err)
	require.False(t, ok)

	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never reached discovery")
	}

	// Stop and restart while the first cycle is still collecting.
	require.True(t, reg.Stop("A"))
	ok, err = reg.Start("A", Overrides{})
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), src.calls.Load(), "next cycle waits for the one in flight")

	close(src.release)
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.data[snapshot.LiveTrades]) == 1
	}, 2*time.Second, 5*time.Millisecond, "first cycle still persists its trade")
	require.Eventually(t, func() bool { return src.calls.Load() > 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), src.peak.Load())

	// One Stop ends the only loop.
	require.True(t, reg.Stop("A"))
	time.Sleep(20 * time.Millisecond)
	calls := src.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, src.calls.Load(), "no loop survives Stop")
}

// slowStore holds its first Save until release is closed.
type slowStore struct {
	*memStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) Save(ctx context.Context, name string, records []trade.Record) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.memStore.Save(ctx, name, records)
}

func TestRegistry_SlowSaveDoesNotStallOtherBots(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	oracle := newFakeOracle()
	oracle.set("M1", 0.01)
	oracle.set("M2", 0.01)
	src := &queueSource{}
	store := &slowStore{memStore: newMemStore(), entered: make(chan struct{}), release: make(chan struct{})}

	reg := NewRegistry(Deps{
		Oracle:   oracle,
		Source:   src,
		Executor: executor.NewPaper(zaptest.NewLogger(t), nil),
		Store:    store,
		Logger:   zaptest.NewLogger(t),
		Clock:    clock.Now,
		Interval: time.Hour,
	})
	defer reg.Shutdown(context.Background())
	for _, w := range []string{"A", "B"} {
		_, err := reg.Start(w, Overrides{})
		require.NoError(t, err)
	}
	a, _ := reg.bot("A")
	b, _ := reg.bot("B")

	src.push(listing("M1"))
	aDone := make(chan struct{})
	go func() {
		defer close(aDone)
		reg.runCycle(context.Background(), a)
	}()
	<-store.entered

	src.push(listing("M2"))
	bDone := make(chan struct{})
	go func() {
		defer close(bDone)
		reg.runCycle(context.Background(), b)
	}()
	select {
	case <-bDone:
	case <-time.After(2 * time.Second):
		t.Fatal("B's cycle waited on A's save")
	}
	require.Len(t, reg.OpenTrades("B"), 1)

	close(store.release)
	<-aDone
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.data[snapshot.LiveTrades]) == 2
	}, 2*time.Second, 5*time.Millisecond, "B's change lands in a follow-up save")
}
