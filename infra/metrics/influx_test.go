package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/ecodispatch/core/metrics"
	"github.com/kilianp07/ecodispatch/core/results"
)

func influxServer(t *testing.T, bodies *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*bodies = append(*bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordRun(t *testing.T) {
	var bodies []string
	srv := influxServer(t, &bodies)

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	ev := sampleRun()
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("dispatch_run").
		AddTag("run_id", "run-1").
		AddTag("strategy", "price_taker").
		AddTag("status", "optimal").
		AddField("steps", 2).
		AddField("variables", 16).
		AddField("constraints", 12).
		AddField("objective", 8.9).
		AddField("compile_ms", 2.0).
		AddField("solve_ms", 5.0).
		SetTime(ev.Time)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected body: %#v", bodies)
	}
}

func TestInfluxSink_RecordResults(t *testing.T) {
	var bodies []string
	srv := influxServer(t, &bodies)

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	now := time.Unix(1700000000, 0)
	sink.now = func() time.Time { return now }

	res := &results.Results{
		Strategy: "price_taker",
		Columns:  []string{"grid_electricity_consumes", results.ObjectiveColumn},
		Rows: []results.Row{
			{Step: 0, Values: []float64{-3, 8.9}},
			{Step: 1, Values: []float64{-5.9, 8.9}},
		},
	}
	if err := sink.RecordResults("run-1", res); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(bodies) != 1 {
		t.Fatalf("expected a single batched write, got %d", len(bodies))
	}
	lines := strings.Split(bodies[0], "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %#v", lines)
	}
	p := write.NewPointWithMeasurement("dispatch_step").
		AddTag("run_id", "run-1").
		AddTag("strategy", "price_taker").
		AddTag("step", "1").
		AddField("grid_electricity_consumes", -5.9).
		AddField("objective", 8.9).
		SetTime(now)
	if want := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)); strings.TrimSpace(lines[1]) != want {
		t.Errorf("got %q want %q", lines[1], want)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink on failing health check, got %T", sink)
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
