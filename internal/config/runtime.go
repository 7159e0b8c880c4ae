package config

import (
	"time"
)

// Runtime carries the settings shared by every source job for one
// invocation.
type Runtime struct {
	SourcesFile     string
	OutputDirectory string

	Workers     int
	HTTPTimeout time.Duration
	RetryCount  int
	RetryDelay  time.Duration
	RetryJitter time.Duration
	UserAgent   string

	DryRun   bool
	Snapshot bool
	Verbose  bool
}
