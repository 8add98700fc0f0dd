// Package timeouts defines shared timeout constants used across Folio
// processes so server and worker code agree on the same budgets.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// OutboundHTTP caps a single outbound HTTP call such as an IndexNow submission.
const OutboundHTTP = 15 * time.Second

// WatchDebounce coalesces bursts of file change notifications.
const WatchDebounce = 500 * time.Millisecond
