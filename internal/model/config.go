package model

import "time"

// ClientConfig is the file based configuration of the sync client.
// Zero values mean not set.
type ClientConfig struct {
	BackendURL       string
	BackendTimeout   time.Duration
	BackendRetries   int
	BackendRetryWait time.Duration
	PollInterval     time.Duration
	JournalPath      string
	// JournalDisabled disables the operation journal.
	JournalDisabled bool
	Listen          string
	AllowedOrigins  []string
}
