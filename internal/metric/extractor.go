// Package metric derives the failure-count metric from the log sink by
// scanning appended records for the literal sentinel prefix and bucketing
// matches into fixed time windows.
package metric

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runwatch/runwatch/internal/classify"
	"github.com/runwatch/runwatch/internal/sink"
)

// DefaultBucket is the metric bucket width when none is configured.
const DefaultBucket = 60 * time.Second

// Sample is the sentinel match count for one aligned time bucket. Buckets
// with no appended records at all are never materialized: absent data is
// the alert dispatcher's "missing" case, not a zero.
type Sample struct {
	Bucket time.Time
	Count  int
}

// Extractor scans a sink for sentinel-prefixed records.
type Extractor struct {
	store   sink.Sink
	bucket  time.Duration
	counter prometheus.Counter

	mu     sync.Mutex
	mark   time.Time // timestamp of the newest sentinel counted so far
	atMark int       // sentinels already counted at exactly mark
}

// NewExtractor builds an extractor over the given sink. When reg is non-nil
// a monotonic counter of sentinel matches is registered on it for scraping.
func NewExtractor(store sink.Sink, bucket time.Duration, namespace string, reg prometheus.Registerer) *Extractor {
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	e := &Extractor{
		store:  store,
		bucket: bucket,
	}
	if reg != nil {
		e.counter = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentinel_matches_total",
			Help:      "Log records matching the failure sentinel prefix.",
		})
		reg.MustRegister(e.counter)
	}
	return e
}

// Window reports the sentinel match count over [from, to] and whether any
// record at all landed in that window. present=false means no invocation
// ran; the dispatcher treats that as missing data, not as a zero sample.
func (e *Extractor) Window(from, to time.Time) (count int, present bool, err error) {
	records, err := e.store.Query(sink.Filter{Since: &from, Until: &to})
	if err != nil {
		return 0, false, fmt.Errorf("querying sink: %w", err)
	}
	if len(records) == 0 {
		return 0, false, nil
	}
	for _, rec := range records {
		if isSentinel(rec) {
			count++
		}
	}
	return count, true, nil
}

// Buckets returns aligned samples over [from, to], oldest first. A bucket
// appears only if at least one record of any severity landed in it.
func (e *Extractor) Buckets(from, to time.Time) ([]Sample, error) {
	records, err := e.store.Query(sink.Filter{Since: &from, Until: &to})
	if err != nil {
		return nil, fmt.Errorf("querying sink: %w", err)
	}

	counts := make(map[time.Time]int)
	var order []time.Time
	for _, rec := range records {
		b := rec.Time.Truncate(e.bucket)
		if _, ok := counts[b]; !ok {
			order = append(order, b)
			counts[b] = 0
		}
		if isSentinel(rec) {
			counts[b]++
		}
	}

	samples := make([]Sample, 0, len(order))
	for _, b := range order {
		samples = append(samples, Sample{Bucket: b, Count: counts[b]})
	}
	return samples, nil
}

// Scan advances the prometheus counter by the number of sentinel records
// appended since the previous Scan. Safe to call from a ticker. Progress is
// tracked by record timestamp rather than file position, so retention
// pruning older records does not disturb the count.
func (e *Extractor) Scan() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := sink.Filter{Prefix: classify.SentinelPrefix}
	if !e.mark.IsZero() {
		f.Since = &e.mark
	}
	records, err := e.store.Query(f)
	if err != nil {
		return 0, fmt.Errorf("querying sink: %w", err)
	}

	// Records at exactly the mark timestamp may be a mix of already-counted
	// and fresh, so those are walked past by position within the timestamp.
	delta := 0
	seenAtMark := 0
	for _, rec := range records {
		switch {
		case rec.Time.Before(e.mark):
			continue
		case rec.Time.Equal(e.mark):
			seenAtMark++
			if seenAtMark <= e.atMark {
				continue
			}
			e.atMark = seenAtMark
			delta++
		default:
			e.mark = rec.Time
			e.atMark = 1
			seenAtMark = 1
			delta++
		}
	}
	if delta > 0 && e.counter != nil {
		e.counter.Add(float64(delta))
	}
	return delta, nil
}

func isSentinel(rec sink.Record) bool {
	return strings.HasPrefix(rec.Text, classify.SentinelPrefix)
}
