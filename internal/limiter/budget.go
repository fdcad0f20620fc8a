package limiter

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/drivesync-cli/internal/core/domain"
)

// Operation classifies a billable API call for cost accounting.
type Operation string

const (
	// OpEmbedding is an embedding request; cost scales with input count.
	OpEmbedding Operation = "embedding"
	// OpCompletion is a completion request.
	OpCompletion Operation = "completion"
)

// BudgetConfig holds the ceilings the budget enforces.
type BudgetConfig struct {
	MaxRequestsPerMinute int
	MaxRequestsPerHour   int
	MaxRequestsPerDay    int
	MaxDailyCostUSD      float64
	CostPerEmbedding     float64
	CostPerCompletion    float64
}

// DeniedError reports which ceiling would be exceeded. It unwraps to
// domain.ErrBudgetExceeded so callers can branch on the class of error
// without inspecting the message.
type DeniedError struct {
	Limit   string
	Current float64
	Max     float64
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("budget denied: %s at %.6g of %.6g", e.Limit, e.Current, e.Max)
}

func (e *DeniedError) Unwrap() error { return domain.ErrBudgetExceeded }

// usageState is the persisted shape of the day's accounting.
type usageState struct {
	Date          string      `json:"date"`
	DailyRequests int         `json:"daily_requests"`
	DailyCostUSD  float64     `json:"daily_cost_usd"`
	Samples       []time.Time `json:"samples"`
}

// UsageStats is a point-in-time snapshot of budget consumption.
type UsageStats struct {
	Date               string
	DailyRequests      int
	DailyCostUSD       float64
	MaxDailyCostUSD    float64
	RequestsLastMinute int
	RequestsLastHour   int
}

// Budget enforces request and cost ceilings. Minute and hour windows
// are computed from a pruned sample list; the daily counters reset
// lazily when the date changes. State persists as JSON so restarts
// within the same day keep counting against the same ceilings.
type Budget struct {
	mu  sync.Mutex
	cfg BudgetConfig

	date     string
	requests int
	cost     float64
	samples  []time.Time

	warned bool

	path string
	log  zerolog.Logger
	now  func() time.Time
}

// NewBudget loads persisted usage from path, starting fresh if the
// file is missing or unreadable. An empty path disables persistence.
func NewBudget(cfg BudgetConfig, path string, log zerolog.Logger) *Budget {
	b := &Budget{
		cfg:  cfg,
		path: path,
		log:  log,
		now:  time.Now,
	}
	b.date = b.today()

	if path == "" {
		return b
	}

	var st usageState
	data, err := os.ReadFile(path)
	if err == nil {
		err = json.Unmarshal(data, &st)
	}
	switch {
	case os.IsNotExist(err):
	case err != nil:
		log.Warn().Err(err).Msg("usage state unreadable, starting fresh")
	case st.Date == b.date:
		b.requests = st.DailyRequests
		b.cost = st.DailyCostUSD
		b.samples = st.Samples
	}

	return b
}

// CheckAllowed reports whether an operation covering the given number
// of billable units may proceed. It checks the per-minute, per-hour and
// per-day request ceilings and the projected daily cost. A denial never
// consumes any budget.
func (b *Budget) CheckAllowed(op Operation, units int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()
	b.pruneLocked()

	now := b.now()
	minuteAgo := now.Add(-time.Minute)
	inMinute := 0
	for _, ts := range b.samples {
		if ts.After(minuteAgo) {
			inMinute++
		}
	}

	if b.cfg.MaxRequestsPerMinute > 0 && inMinute >= b.cfg.MaxRequestsPerMinute {
		return &DeniedError{Limit: "requests per minute", Current: float64(inMinute), Max: float64(b.cfg.MaxRequestsPerMinute)}
	}
	if b.cfg.MaxRequestsPerHour > 0 && len(b.samples) >= b.cfg.MaxRequestsPerHour {
		return &DeniedError{Limit: "requests per hour", Current: float64(len(b.samples)), Max: float64(b.cfg.MaxRequestsPerHour)}
	}
	if b.cfg.MaxRequestsPerDay > 0 && b.requests >= b.cfg.MaxRequestsPerDay {
		return &DeniedError{Limit: "requests per day", Current: float64(b.requests), Max: float64(b.cfg.MaxRequestsPerDay)}
	}

	projected := b.cost + b.unitCost(op)*float64(units)
	if b.cfg.MaxDailyCostUSD > 0 && projected > b.cfg.MaxDailyCostUSD {
		return &DeniedError{Limit: "daily cost USD", Current: projected, Max: b.cfg.MaxDailyCostUSD}
	}

	return nil
}

// RecordUsage accounts one API request covering the given number of
// billable units and persists the updated state.
func (b *Budget) RecordUsage(op Operation, units int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()

	b.samples = append(b.samples, b.now())
	b.requests++
	b.cost += b.unitCost(op) * float64(units)

	if !b.warned && b.cfg.MaxDailyCostUSD > 0 && b.cost >= 0.8*b.cfg.MaxDailyCostUSD {
		b.warned = true
		b.log.Warn().
			Float64("daily_cost_usd", b.cost).
			Float64("max_daily_cost_usd", b.cfg.MaxDailyCostUSD).
			Msg("daily cost budget above 80 percent")
	}

	b.persistLocked()
}

// Stats returns a snapshot of current consumption.
func (b *Budget) Stats() UsageStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rolloverLocked()
	b.pruneLocked()

	now := b.now()
	minuteAgo := now.Add(-time.Minute)
	inMinute := 0
	for _, ts := range b.samples {
		if ts.After(minuteAgo) {
			inMinute++
		}
	}

	return UsageStats{
		Date:               b.date,
		DailyRequests:      b.requests,
		DailyCostUSD:       b.cost,
		MaxDailyCostUSD:    b.cfg.MaxDailyCostUSD,
		RequestsLastMinute: inMinute,
		RequestsLastHour:   len(b.samples),
	}
}

func (b *Budget) unitCost(op Operation) float64 {
	switch op {
	case OpCompletion:
		return b.cfg.CostPerCompletion
	default:
		return b.cfg.CostPerEmbedding
	}
}

func (b *Budget) today() string {
	return b.now().Format("2006-01-02")
}

// rolloverLocked resets the daily counters when the date has changed
// since the last operation.
func (b *Budget) rolloverLocked() {
	today := b.today()
	if today == b.date {
		return
	}
	b.date = today
	b.requests = 0
	b.cost = 0
	b.samples = nil
	b.warned = false
	b.persistLocked()
}

// pruneLocked drops samples older than one hour.
func (b *Budget) pruneLocked() {
	cutoff := b.now().Add(-time.Hour)
	kept := b.samples[:0]
	for _, ts := range b.samples {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.samples = kept
}

func (b *Budget) persistLocked() {
	if b.path == "" {
		return
	}

	st := usageState{
		Date:          b.date,
		DailyRequests: b.requests,
		DailyCostUSD:  b.cost,
		Samples:       b.samples,
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		b.log.Warn().Err(err).Msg("marshal usage state failed")
		return
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		b.log.Warn().Err(err).Msg("persist usage state failed")
		return
	}
	if err := os.Rename(tmp, b.path); err != nil {
		b.log.Warn().Err(err).Msg("persist usage state failed")
	}
}
