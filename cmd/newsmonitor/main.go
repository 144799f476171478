// Command newsmonitor runs the keyword-monitor and auto-ingest pipeline:
// an HTTP API (serve), schema migrations (migrate), and one-shot
// invocations of the monitor tick and auto-ingest run for cron-style
// scheduling outside the long-running server.
package main

import (
	"newsmonitor/internal/logger"
)

func main() {
	logger.Init()
	Execute()
}
