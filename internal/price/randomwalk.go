package price

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RandomWalk is a simulated oracle. Each lookup perturbs the last price of a
// token by a bounded random percentage.
type RandomWalk struct {
	mu      sync.Mutex
	rng     *rand.Rand
	prices  map[string]float64
	maxStep float64 // fraction, 0.05 = ±5%
	minSeed float64
	maxSeed float64
}

// NewRandomWalk creates a walk with ±5% steps and seed prices in [0.01, 0.11].
func NewRandomWalk(seed int64) *RandomWalk {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomWalk{
		rng:     rand.New(rand.NewSource(seed)),
		prices:  make(map[string]float64),
		maxStep: 0.05,
		minSeed: 0.01,
		maxSeed: 0.11,
	}
}

// Seed pins the current price of a token.
func (w *RandomWalk) Seed(mint string, price float64) {
	w.mu.Lock()
	w.prices[mint] = price
	w.mu.Unlock()
}

// GetPrice returns a seed price on first lookup and a perturbed price afterwards.
func (w *RandomWalk) GetPrice(ctx context.Context, mint string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	last, ok := w.prices[mint]
	if !ok {
		p := w.minSeed + w.rng.Float64()*(w.maxSeed-w.minSeed)
		w.prices[mint] = p
		return p, nil
	}

	step := (w.rng.Float64()*2 - 1) * w.maxStep
	next := last * (1 + step)
	w.prices[mint] = next
	return next, nil
}

// Forget drops the walk state of a token.
func (w *RandomWalk) Forget(mint string) {
	w.mu.Lock()
	delete(w.prices, mint)
	w.mu.Unlock()
}
