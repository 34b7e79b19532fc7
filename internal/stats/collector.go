// Package stats implements the windowed metric aggregation channels use to
// report throughput and latency. A Collector owns exactly one mutable
// "current" time slice; closed slices are immutable history retained until
// their TTL elapses.
package stats

import (
	"math"
	"sync"
	"time"
)

// Kind selects the aggregation function for a bucket.
type Kind int

const (
	// Count is a running sum with floor-to-integer semantics on both
	// operands.
	Count Kind = iota
	// Midpoint is a recursive midpoint of the existing value and the
	// incoming one, not a true mean. Order-sensitive by construction;
	// consumers of the data depend on exactly this behavior.
	Midpoint
)

func (k Kind) apply(current, val float64) float64 {
	switch k {
	case Midpoint:
		return (current + val) / 2
	default:
		return math.Floor(current) + math.Floor(val)
	}
}

// Datum is one record call's worth of bucket updates sharing a Kind.
type Datum struct {
	Kind    Kind
	Buckets map[string]float64
}

// TimeSlice is a fixed-duration window of aggregated buckets. The current
// slice satisfies Start <= now < End at all times outside the atomic roll.
type TimeSlice struct {
	Start   time.Time
	End     time.Time
	TTL     time.Time
	Buckets map[string]float64
	Kinds   map[string]Kind
}

func (s TimeSlice) closed(now time.Time) bool {
	return s.End.Before(now) || s.End.Equal(now)
}

func (s TimeSlice) expired(now time.Time) bool {
	return s.TTL.Before(now)
}

// Collector aggregates bucket updates into time slices. Safe for concurrent
// use, though the intended ownership is one collector per producer.
type Collector struct {
	mu        sync.Mutex
	period    time.Duration
	retention time.Duration
	now       func() time.Time
	current   TimeSlice
	slices    []TimeSlice
}

func NewCollector(period, retention time.Duration) *Collector {
	return newCollector(period, retention, time.Now)
}

func newCollector(period, retention time.Duration, now func() time.Time) *Collector {
	c := &Collector{
		period:    period,
		retention: retention,
		now:       now,
	}
	c.current = c.newSlice()
	return c
}

func (c *Collector) newSlice() TimeSlice {
	now := c.now()
	return TimeSlice{
		Start:   now,
		End:     now.Add(c.period),
		TTL:     now.Add(c.retention),
		Buckets: make(map[string]float64),
		Kinds:   make(map[string]Kind),
	}
}

// roll closes the current slice when its window has passed. A non-empty
// closed slice moves into history; an empty one is discarded.
func (c *Collector) roll() {
	if !c.current.closed(c.now()) {
		return
	}
	if len(c.current.Buckets) > 0 {
		c.slices = append(c.slices, c.current)
	}
	c.current = c.newSlice()
}

// compact drops historic slices whose retention has elapsed.
func (c *Collector) compact() {
	now := c.now()
	kept := c.slices[:0]
	for _, s := range c.slices {
		if !s.expired(now) {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(c.slices); i++ {
		c.slices[i] = TimeSlice{}
	}
	c.slices = kept
}

// Record folds each datum's buckets into the current slice, rolling and
// compacting first. A bucket with no existing value folds against zero.
func (c *Collector) Record(data ...Datum) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll()
	c.compact()

	for _, d := range data {
		for key, val := range d.Buckets {
			existing := c.current.Buckets[key]
			c.current.Buckets[key] = d.Kind.apply(existing, val)
			c.current.Kinds[key] = d.Kind
		}
	}
}

// Summarize merges buckets across the current slice and every retained slice
// whose window overlaps the last `window` of wall time, folding each bucket
// with its recorded aggregation kind in chronological order.
func (c *Collector) Summarize(window time.Duration) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll()
	c.compact()

	cutoff := c.now().Add(-window)
	result := make(map[string]float64)
	kinds := make(map[string]Kind)

	merge := func(s TimeSlice) {
		if s.End.Before(cutoff) {
			return
		}
		for key, val := range s.Buckets {
			kind := s.Kinds[key]
			if _, ok := kinds[key]; !ok {
				result[key] = val
				kinds[key] = kind
				continue
			}
			result[key] = kind.apply(result[key], val)
		}
	}

	for _, s := range c.slices {
		merge(s)
	}
	merge(c.current)

	return result
}

// Slices returns a snapshot of the retained historic slices. Intended for
// tests and the stats reporting endpoint.
func (c *Collector) Slices() []TimeSlice {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]TimeSlice, len(c.slices))
	copy(out, c.slices)
	return out
}

// CurrentBuckets returns a copy of the current slice's buckets.
func (c *Collector) CurrentBuckets() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]float64, len(c.current.Buckets))
	for k, v := range c.current.Buckets {
		out[k] = v
	}
	return out
}
