package usage

import "sync"

// Rates are the per-million token prices used to turn token counts into cost.
type Rates struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultRates matches the published GPT-4o pricing the review tool was calibrated on.
var DefaultRates = Rates{
	InputPerMillion:  2.50,
	OutputPerMillion: 7.50,
}

// Cost returns the price of a single exchange.
func (r Rates) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*r.InputPerMillion/1_000_000 +
		float64(completionTokens)*r.OutputPerMillion/1_000_000
}

// Totals is a snapshot of the accumulated usage of one session.
type Totals struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TokenTotal       int64   `json:"token_total"`
	CostTotal        float64 `json:"cost_total"`
}

// Meter accumulates usage across an unbounded number of exchanges.
// Totals only ever grow.
type Meter struct {
	mu     sync.Mutex
	rates  Rates
	totals Totals
}

func NewMeter(rates Rates) *Meter {
	return &Meter{rates: rates}
}

// Record adds one exchange to the totals and returns its cost.
func (m *Meter) Record(promptTokens, completionTokens int) float64 {
	if promptTokens < 0 {
		promptTokens = 0
	}
	if completionTokens < 0 {
		completionTokens = 0
	}

	delta := m.rates.Cost(promptTokens, completionTokens)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals.PromptTokens += int64(promptTokens)
	m.totals.CompletionTokens += int64(completionTokens)
	m.totals.TokenTotal += int64(promptTokens + completionTokens)
	m.totals.CostTotal += delta

	return delta
}

func (m *Meter) Totals() Totals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals
}

func (m *Meter) Rates() Rates {
	return m.rates
}
