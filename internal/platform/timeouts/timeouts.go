// Package timeouts defines shared timeout constants used across the
// rolltable processes. Centralizing these values keeps the durations
// discoverable and prevents drift between transport boundaries.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the servers wait for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
