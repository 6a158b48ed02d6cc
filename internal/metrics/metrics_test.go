package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coopco/dodgem/internal/bump"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectorCountsEvents(t *testing.T) {
	c := NewCollector()
	ok := bump.Outcome{Status: bump.Success, Elapsed: 3 * time.Second}
	bad := bump.Outcome{Status: bump.Failure, Elapsed: time.Second, Reason: "edit"}
	next := time.Unix(1709294700, 0)

	events := []bump.Event{
		{Kind: bump.EventStateChanged, State: bump.Bumping},
		{Kind: bump.EventListingsFound, Count: 4},
		{Kind: bump.EventBumpFinished, Outcome: &ok},
		{Kind: bump.EventBumpFinished, Outcome: &ok},
		{Kind: bump.EventBumpFinished, Outcome: &bad},
		{Kind: bump.EventCycleCompleted, NextRun: next},
		{Kind: bump.EventCycleFailed, Err: errors.New("x")},
		{Kind: bump.EventAuthFailed},
	}
	for _, e := range events {
		c.Emit(e)
	}

	body := scrape(t, c)
	want := []string{
		`dodgem_bumps_total{status="success"} 2`,
		`dodgem_bumps_total{status="failure"} 1`,
		`dodgem_bump_duration_seconds_count 3`,
		`dodgem_cycles_total{result="completed"} 1`,
		`dodgem_cycles_total{result="failed"} 1`,
		`dodgem_listings_found 4`,
		`dodgem_next_run_timestamp_seconds 1.7092947e+09`,
		`dodgem_state{state="bumping"} 1`,
		`dodgem_state{state="idle"} 0`,
		`dodgem_auth_failures_total 1`,
	}
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("metrics missing %q", w)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.Emit(bump.Event{Kind: bump.EventAuthFailed})
	if body := scrape(t, b); !strings.Contains(body, "dodgem_auth_failures_total 0") {
		t.Error("expected second collector to be unaffected")
	}
}
