// Package watch detects changes to vendor policy pages. Each configured
// policy URL is fetched, the raw response body is hashed, and the hash is
// compared against the previous check. Content normalization is out of
// scope; any byte-level change counts as a change and is surfaced for a
// human to review against the rules table.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/decidefyi/decide/internal/common/logging"
	"github.com/decidefyi/decide/internal/rules"
)

// maxBodyBytes caps how much of a policy page is read for hashing.
const maxBodyBytes = 4 << 20

// Snapshot is the recorded state of one vendor's policy page.
type Snapshot struct {
	Vendor    string     `json:"vendor"`
	URL       string     `json:"url"`
	Hash      string     `json:"hash,omitempty"`
	CheckedAt time.Time  `json:"checked_at"`
	ChangedAt *time.Time `json:"changed_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Detector fetches policy pages and tracks content hashes in memory.
// Nothing persists across restarts; the first check after startup only
// establishes baselines.
type Detector struct {
	table   *rules.Table
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	mu        sync.Mutex
	snapshots map[string]*Snapshot

	scheduler *cron.Cron
	now       func() time.Time
}

// NewDetector creates a detector over the vendors in the rules table.
// Outbound fetches share one circuit breaker and are paced to one per
// second so a broken or slow vendor site cannot wedge a check run.
func NewDetector(table *rules.Table, timeout time.Duration) *Detector {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "policy-pages",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Detector{
		table:     table,
		client:    &http.Client{Timeout: timeout},
		breaker:   breaker,
		limiter:   rate.NewLimiter(rate.Limit(1), 3),
		snapshots: make(map[string]*Snapshot),
		now:       time.Now,
	}
}

// CheckAll runs one detection pass over every vendor with a policy URL.
func (d *Detector) CheckAll(ctx context.Context) {
	for _, vendor := range d.table.All() {
		if vendor.PolicyURL == "" {
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}
		d.checkOne(ctx, vendor)
	}
}

func (d *Detector) checkOne(ctx context.Context, vendor *rules.Vendor) {
	checkedAt := d.now()

	hash, err := d.fetchHash(ctx, vendor.PolicyURL)

	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot, exists := d.snapshots[vendor.Key]
	if !exists {
		snapshot = &Snapshot{Vendor: vendor.Key, URL: vendor.PolicyURL}
		d.snapshots[vendor.Key] = snapshot
	}
	snapshot.CheckedAt = checkedAt
	snapshot.URL = vendor.PolicyURL

	if err != nil {
		snapshot.LastError = err.Error()
		logging.Warn("policy page check failed",
			logging.String("vendor", vendor.Key),
			logging.String("url", vendor.PolicyURL),
			logging.Err(err),
		)
		return
	}

	snapshot.LastError = ""
	if snapshot.Hash != "" && snapshot.Hash != hash {
		changedAt := checkedAt
		snapshot.ChangedAt = &changedAt
		logging.Info("policy page changed",
			logging.String("vendor", vendor.Key),
			logging.String("url", vendor.PolicyURL),
		)
	}
	snapshot.Hash = hash
}

func (d *Detector) fetchHash(ctx context.Context, url string) (string, error) {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "decide-policy-watch/1.0")

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		hasher := sha256.New()
		if _, err := io.Copy(hasher, io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
			return nil, err
		}
		return hex.EncodeToString(hasher.Sum(nil)), nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Snapshots returns the current state of every checked page, ordered by
// vendor key.
func (d *Detector) Snapshots() []Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Snapshot, 0, len(d.snapshots))
	for _, snapshot := range d.snapshots {
		out = append(out, *snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor < out[j].Vendor })
	return out
}

// Start schedules recurring detection passes. The schedule uses cron
// syntax, including descriptors like "@hourly".
func (d *Detector) Start(schedule string) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		d.CheckAll(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}

	scheduler.Start()
	d.scheduler = scheduler

	logging.Info("policy page watch started", logging.String("schedule", schedule))
	return nil
}

// Stop halts the scheduler. In-flight checks finish on their own.
func (d *Detector) Stop() {
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
}
