package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launch-trader/internal/events"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

var t0 = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func closed(wallet, mint string, profit float64, reason trade.CloseReason) trade.Record {
	return trade.Record{
		Wallet:       wallet,
		Mint:         mint,
		Symbol:       "TEST",
		Amount:       1,
		EntryPrice:   1,
		CurrentPrice: 1 + profit,
		Profit:       profit,
		EntryTime:    t0,
		ClosedAt:     t0.Add(90 * time.Second),
		Status:       trade.StatusCompleted,
		CloseReason:  reason,
	}
}

func TestJournal_HistoryIsBoundedAndNewestFirst(t *testing.T) {
	j, err := New("", 2, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, j.Record(closed("w1", "a", 0.3, trade.ReasonTakeProfit)))
	require.NoError(t, j.Record(closed("w2", "b", -0.2, trade.ReasonStopLoss)))
	require.NoError(t, j.Record(closed("w1", "c", 0.1, trade.ReasonTimeout)))

	all := j.History("")
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].Mint)
	assert.Equal(t, "b", all[1].Mint)

	mine := j.History("w1")
	require.Len(t, mine, 1)
	assert.Equal(t, "c", mine[0].Mint)
	assert.Empty(t, j.History("nobody"))
	assert.Len(t, j.Recent(1), 1)

	stats := j.Statistics()
	assert.Equal(t, 3, stats.Closed)
	assert.Equal(t, 2, stats.Wins)
	assert.InDelta(t, 0.2, stats.TotalProfit, 1e-9)
	require.NoError(t, j.Close())
}

func TestJournal_WritesCSVFromBus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "closed.csv")
	log := zaptest.NewLogger(t)

	j, err := New(path, 10, log)
	require.NoError(t, err)

	bus := events.NewBus(log, 8)
	sub := j.Attach(bus)
	defer sub.Unsubscribe()

	require.NoError(t, bus.Publish(events.NewTradeOpened(closed("w1", "ignored", 0, ""), t0)))
	require.NoError(t, bus.Publish(events.NewTradeClosed(closed("w1", "mint-1", 0.5, trade.ReasonTakeProfit), t0)))
	require.NoError(t, bus.Shutdown(context.Background()))
	require.NoError(t, j.Close())

	require.Len(t, j.History("w1"), 1)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "mint-1", rows[1][2])
	assert.Equal(t, "take_profit", rows[1][9])
	assert.Equal(t, "1m30s", rows[1][10])
}
