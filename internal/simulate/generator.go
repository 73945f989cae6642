// Package simulate runs a demonstration bot against synthetic listings and
// random-walk prices.
package simulate

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/launch-trader/internal/discovery"
)

var symbols = []string{"BONK", "SAMO", "RAY", "SRM", "ORCA", "JUP", "PYTH", "JTO"}

// Generator emits one synthetic listing every spawnMin..spawnMax. It never
// blocks: Collect returns whatever became due since the last call.
type Generator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	spawnMin time.Duration
	spawnMax time.Duration
	next     time.Time
}

func NewGenerator(rng *rand.Rand, now func() time.Time, spawnMin, spawnMax time.Duration) *Generator {
	if spawnMax < spawnMin {
		spawnMax = spawnMin
	}
	g := &Generator{rng: rng, now: now, spawnMin: spawnMin, spawnMax: spawnMax}
	g.next = now().Add(g.delay())
	return g
}

func (g *Generator) delay() time.Duration {
	span := int64(g.spawnMax - g.spawnMin)
	if span <= 0 {
		return g.spawnMin
	}
	return g.spawnMin + time.Duration(g.rng.Int63n(span+1))
}

func (g *Generator) Collect(ctx context.Context) []discovery.TokenListing {
	if ctx.Err() != nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Before(g.next) {
		return nil
	}
	g.next = now.Add(g.delay())

	sym := symbols[g.rng.Intn(len(symbols))]
	return []discovery.TokenListing{{
		Mint:         "sim-" + sym + "-" + uuid.NewString()[:8],
		Symbol:       sym,
		Name:         sym + " (simulated)",
		DiscoveredAt: now,
	}}
}
