package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCacheCoalescesRuns(t *testing.T) {
	c := NewReportCache()
	var calls atomic.Int32
	release := make(chan struct{})

	run := func(ctx context.Context) (*RunReport, error) {
		calls.Add(1)
		<-release
		return &RunReport{ID: "run-1", Source: "os1"}, nil
	}

	var wg sync.WaitGroup
	results := make([]*RunReport, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _, err := c.Do(context.Background(), "os1", run)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}

	// Let the goroutines pile up on the in-flight run.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "run-1", r.ID)
	}
	last, ok := c.Last("os1")
	require.True(t, ok)
	assert.Equal(t, "run-1", last.ID)
}

func TestReportCacheKeepsFailedReport(t *testing.T) {
	c := NewReportCache()
	boom := errors.New("boom")

	r, shared, err := c.Do(context.Background(), "os1", func(context.Context) (*RunReport, error) {
		return &RunReport{ID: "r", Source: "os1", Error: boom.Error()}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, shared)
	require.NotNil(t, r)

	last, ok := c.Last("os1")
	require.True(t, ok)
	assert.Equal(t, "boom", last.Error)

	_, ok = c.Last("other")
	assert.False(t, ok)
}
