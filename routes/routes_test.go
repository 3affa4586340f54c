package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/atento-labs/callaudit/logging"
	"github.com/atento-labs/callaudit/stats"
)

func newLogEntry(msg string) *logrus.Entry {
	return &logrus.Entry{
		Logger:  logrus.StandardLogger(),
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: msg,
	}
}

func newApp() (*fiber.App, *stats.Collector, *logging.RingHook) {
	collector := stats.NewCollector()
	ring := logging.NewRingHook(100)
	app := fiber.New()
	Register(app, Config{Stats: collector, Logs: ring})
	return app, collector, ring
}

func markAllHealthy(c *stats.Collector) {
	c.SetComponent(stats.ComponentStore, stats.StatusHealthy, "")
	c.SetComponent(stats.ComponentQueue, stats.StatusHealthy, "")
	c.SetComponent(stats.ComponentAI, stats.StatusHealthy, "")
}

func TestHealthDegradedDuringStartup(t *testing.T) {
	app, _, _ := newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 while components are uninitialized", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestHealthHealthy(t *testing.T) {
	app, collector, _ := newApp()
	markAllHealthy(collector)
	collector.Success("m1", "call.mp3", 2*time.Second)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Uptime struct {
			Seconds   int64  `json:"seconds"`
			Formatted string `json:"formatted"`
		} `json:"uptime"`
		Components map[string]stats.ComponentStatus `json:"components"`
		Statistics struct {
			TotalProcessed      int64  `json:"totalProcessed"`
			SuccessRate         string `json:"successRate"`
			CurrentlyProcessing int    `json:"currentlyProcessing"`
		} `json:"statistics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	if body.Status != "healthy" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Statistics.TotalProcessed != 1 || body.Statistics.SuccessRate != "100.00%" {
		t.Errorf("statistics = %+v", body.Statistics)
	}
	if body.Components[stats.ComponentStore].Status != stats.StatusHealthy {
		t.Errorf("components = %+v", body.Components)
	}
	if body.Uptime.Formatted == "" {
		t.Error("expected a formatted uptime")
	}
}

func TestHealthDegradedComponent(t *testing.T) {
	app, collector, _ := newApp()
	markAllHealthy(collector)
	collector.SetComponent(stats.ComponentStore, stats.StatusError, "connection refused")

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestObservatorioData(t *testing.T) {
	app, collector, ring := newApp()
	collector.Failure("m1", "call.mp3", "boom", time.Second)
	_ = ring.Fire(newLogEntry("processing started"))

	resp, err := app.Test(httptest.NewRequest("GET", "/observatorio/data", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Stats stats.Snapshot  `json:"stats"`
		Logs  []logging.Entry `json:"logs"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}

	if body.Stats.TotalFailed != 1 {
		t.Errorf("stats = %+v", body.Stats)
	}
	if len(body.Logs) != 1 || body.Logs[0].Message != "processing started" {
		t.Errorf("logs = %+v", body.Logs)
	}
}

func TestFormatUptime(t *testing.T) {
	d := time.Hour + 2*time.Minute + 3*time.Second
	if got := formatUptime(d); got != "1h 2m 3s" {
		t.Errorf("formatUptime = %q", got)
	}
}
