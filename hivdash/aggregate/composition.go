package aggregate

import (
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

// DefaultYear is the year the composition and word cloud views start on.
const DefaultYear = 1990

// SelectableYears returns the years offered by the year pickers.
func SelectableYears() []int {
	years := make([]int, 0, 30)
	for y := 1990; y < 2020; y++ {
		years = append(years, y)
	}
	return years
}

// EntityTotal is the sum of both metrics for one entity.
type EntityTotal struct {
	Entity    string  `json:"entity"`
	Incidence float64 `json:"incidence"`
	Deaths    float64 `json:"deaths"`
}

// Shares returns the fraction of the entity's total that is incidence and
// deaths. Both are 0 when the total is 0.
func (e EntityTotal) Shares() (incidence, deaths float64) {
	total := e.Incidence + e.Deaths
	if total == 0 {
		return 0, 0
	}
	return e.Incidence / total, e.Deaths / total
}

// EntityTotalsForYear sums both metrics per entity over the records of one
// year, in first-appearance order. A non-empty search keeps only entities
// whose name contains it, ignoring case.
func EntityTotalsForYear(records []types.Record, year int, search string) []EntityTotal {
	index := make(map[string]int)
	out := make([]EntityTotal, 0)
	for _, r := range records {
		if r.Year != year {
			continue
		}
		i, ok := index[r.Entity]
		if !ok {
			i = len(out)
			index[r.Entity] = i
			out = append(out, EntityTotal{Entity: r.Entity})
		}
		out[i].Incidence += r.Incidence
		out[i].Deaths += r.Deaths
	}

	if search == "" {
		return out
	}
	q := strings.ToLower(search)
	filtered := out[:0]
	for _, e := range out {
		if strings.Contains(strings.ToLower(e.Entity), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// DefaultDebounce is the delay applied to interactive search input.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays a call until input has been quiet for the configured
// delay. Only the last value of a burst is delivered.
type Debouncer struct {
	delay time.Duration
	fn    func(string)

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer returns a debouncer that calls fn.
func NewDebouncer(delay time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Push schedules fn(value), replacing any pending call.
func (d *Debouncer) Push(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fn(value) })
}

// Flush cancels any pending call and delivers value now.
func (d *Debouncer) Flush(value string) {
	d.Stop()
	d.fn(value)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
