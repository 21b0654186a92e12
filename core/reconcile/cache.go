package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// RunFunc executes one run of a source.
type RunFunc func(ctx context.Context) (*RunReport, error)

// ReportCache coalesces concurrent runs of the same source and keeps the last
// report of every source.
type ReportCache struct {
	mu      sync.RWMutex
	reports map[string]*RunReport
	sf      singleflight.Group
}

// NewReportCache returns an empty cache.
func NewReportCache() *ReportCache {
	return &ReportCache{reports: make(map[string]*RunReport)}
}

// Last returns the most recent report of source.
func (c *ReportCache) Last(source string) (*RunReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[source]
	return r, ok
}

// Store records report as the latest of its source.
func (c *ReportCache) Store(report *RunReport) {
	if report == nil {
		return
	}
	c.mu.Lock()
	c.reports[report.Source] = report
	c.mu.Unlock()
}

// Do runs fn for source unless a run of the same source is in flight, in which
// case the caller waits for that run and shares its result. shared reports
// whether the result was produced for another caller too.
func (c *ReportCache) Do(ctx context.Context, source string, fn RunFunc) (report *RunReport, shared bool, err error) {
	v, err, shared := c.sf.Do(source, func() (interface{}, error) {
		r, err := fn(ctx)
		c.Store(r)
		return r, err
	})
	report, _ = v.(*RunReport)
	return report, shared, err
}
