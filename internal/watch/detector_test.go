package watch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/decidefyi/decide/internal/rules"
)

func tableWithURL(t *testing.T, url string) *rules.Table {
	t.Helper()

	table, err := rules.Parse([]byte(fmt.Sprintf(`{
		"version": "test.1",
		"vendors": [
			{"key": "adobe", "name": "Adobe", "policy_url": %q, "refund": {"window_days": 14}}
		]
	}`, url)))
	require.NoError(t, err)
	return table
}

func TestFirstCheckEstablishesBaseline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "refunds within 14 days")
	}))
	defer server.Close()

	detector := NewDetector(tableWithURL(t, server.URL), time.Second)
	detector.CheckAll(context.Background())

	snapshots := detector.Snapshots()
	require.Len(t, snapshots, 1)
	assert.Equal(t, "adobe", snapshots[0].Vendor)
	assert.NotEmpty(t, snapshots[0].Hash)
	assert.Nil(t, snapshots[0].ChangedAt)
	assert.Empty(t, snapshots[0].LastError)
}

func TestUnchangedPageDoesNotFlagChange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "stable policy text")
	}))
	defer server.Close()

	detector := NewDetector(tableWithURL(t, server.URL), time.Second)
	detector.CheckAll(context.Background())
	detector.CheckAll(context.Background())

	snapshots := detector.Snapshots()
	require.Len(t, snapshots, 1)
	assert.Nil(t, snapshots[0].ChangedAt)
}

func TestChangedPageIsFlagged(t *testing.T) {
	var version atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "policy revision %d", version.Load())
	}))
	defer server.Close()

	detector := NewDetector(tableWithURL(t, server.URL), time.Second)
	detector.CheckAll(context.Background())

	version.Store(1)
	detector.CheckAll(context.Background())

	snapshots := detector.Snapshots()
	require.Len(t, snapshots, 1)
	require.NotNil(t, snapshots[0].ChangedAt)
	assert.Empty(t, snapshots[0].LastError)
}

func TestFetchFailureIsRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	detector := NewDetector(tableWithURL(t, server.URL), time.Second)
	detector.CheckAll(context.Background())

	snapshots := detector.Snapshots()
	require.Len(t, snapshots, 1)
	assert.Contains(t, snapshots[0].LastError, "503")
}

func TestFailureDoesNotDiscardBaseline(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "baseline text")
	}))
	defer server.Close()

	detector := NewDetector(tableWithURL(t, server.URL), time.Second)
	detector.CheckAll(context.Background())
	baseline := detector.Snapshots()[0].Hash
	require.NotEmpty(t, baseline)

	failing.Store(true)
	detector.CheckAll(context.Background())

	snapshot := detector.Snapshots()[0]
	assert.Equal(t, baseline, snapshot.Hash)
	assert.NotEmpty(t, snapshot.LastError)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	detector := NewDetector(tableWithURL(t, server.URL), time.Second)
	detector.limiter = rate.NewLimiter(rate.Inf, 0)
	for i := 0; i < 8; i++ {
		detector.CheckAll(context.Background())
	}

	// After five consecutive failures the breaker stops sending traffic.
	assert.LessOrEqual(t, hits.Load(), int64(5))

	snapshot := detector.Snapshots()[0]
	assert.NotEmpty(t, snapshot.LastError)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	detector := NewDetector(tableWithURL(t, "http://example.invalid"), time.Second)
	assert.Error(t, detector.Start("not a schedule"))
}

func TestStartAndStop(t *testing.T) {
	detector := NewDetector(tableWithURL(t, "http://example.invalid"), time.Second)
	require.NoError(t, detector.Start("@hourly"))
	detector.Stop()
}
