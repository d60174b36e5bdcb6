package cost

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/selivandex/forex-analyzer/pkg/models"
)

// Accumulator is a running total of estimated spend, it only grows
type Accumulator struct {
	total decimal.Decimal
	count int
	mu    sync.RWMutex
}

// NewAccumulator creates zero accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{total: decimal.Zero}
}

// Add records spend of one request, non-positive amounts are ignored
func (a *Accumulator) Add(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total = a.total.Add(amount)
	a.count++
}

// Total returns exact running total
func (a *Accumulator) Total() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.total
}

// Float64 returns running total for display
func (a *Accumulator) Float64() float64 {
	return models.ToFloat64(a.Total())
}

// Requests returns how many priced requests were recorded
func (a *Accumulator) Requests() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}
