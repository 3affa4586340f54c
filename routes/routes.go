// Package routes exposes the worker's HTTP surface: a readiness probe
// and an operational snapshot endpoint.
package routes

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atento-labs/callaudit/logging"
	"github.com/atento-labs/callaudit/stats"
)

// Config wires the route handlers to the worker's observability state.
type Config struct {
	Stats *stats.Collector
	Logs  *logging.RingHook
}

// Register mounts the HTTP routes on app.
func Register(app *fiber.App, cfg Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		healthy := cfg.Stats.Healthy()
		snap := cfg.Stats.Snapshot()
		uptime := cfg.Stats.Uptime()

		status := "healthy"
		code := fiber.StatusOK
		if !healthy {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		successRate := 0.0
		if snap.TotalProcessed > 0 {
			successRate = float64(snap.TotalSuccess) / float64(snap.TotalProcessed) * 100
		}

		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"uptime": fiber.Map{
				"seconds":   int64(uptime.Seconds()),
				"formatted": formatUptime(uptime),
			},
			"components": cfg.Stats.Components(),
			"statistics": fiber.Map{
				"totalProcessed":      snap.TotalProcessed,
				"totalSuccess":        snap.TotalSuccess,
				"totalFailed":         snap.TotalFailed,
				"successRate":         fmt.Sprintf("%.2f%%", successRate),
				"currentlyProcessing": len(snap.Processing),
				"lastMessageTime":     snap.LastMessageTime,
			},
		})
	})

	app.Get("/observatorio/data", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"stats": cfg.Stats.Snapshot(),
			"logs":  cfg.Logs.Entries(),
		})
	})
}

func formatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}
