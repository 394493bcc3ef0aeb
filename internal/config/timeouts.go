package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts bounds the waits and retries of provider calls.
type Timeouts struct {
	DiskReady         time.Duration // a new disk becoming available
	InstanceReady     time.Duration // a new instance reporting running
	Delete            time.Duration // one delete including its retries
	PollInterval      time.Duration // pause between readiness checks
	RetryMaxAttempts  int           // calls per API request, first one included
	RetryInitialDelay time.Duration // pause after the first failed call
}

// DefaultTimeouts returns the timeouts used when the environment sets none.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		DiskReady:         5 * time.Minute,
		InstanceReady:     10 * time.Minute,
		Delete:            5 * time.Minute,
		PollInterval:      2 * time.Second,
		RetryMaxAttempts:  5,
		RetryInitialDelay: time.Second,
	}
}

// LoadTimeouts returns the defaults overridden by the SIMRUN_TIMEOUT_*,
// SIMRUN_POLL_INTERVAL and SIMRUN_RETRY_* environment variables.
func LoadTimeouts() *Timeouts {
	return DefaultTimeouts().Override(os.LookupEnv)
}

// Override replaces every value whose variable lookup returns a valid
// positive setting and returns t. Invalid settings keep the current value.
func (t *Timeouts) Override(lookup func(string) (string, bool)) *Timeouts {
	durations := map[string]*time.Duration{
		"SIMRUN_TIMEOUT_DISK_READY":     &t.DiskReady,
		"SIMRUN_TIMEOUT_INSTANCE_READY": &t.InstanceReady,
		"SIMRUN_TIMEOUT_DELETE":         &t.Delete,
		"SIMRUN_POLL_INTERVAL":          &t.PollInterval,
		"SIMRUN_RETRY_INITIAL_DELAY":    &t.RetryInitialDelay,
	}
	for name, field := range durations {
		if v, ok := lookup(name); ok {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*field = d
			}
		}
	}

	if v, ok := lookup("SIMRUN_RETRY_MAX_ATTEMPTS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			t.RetryMaxAttempts = n
		}
	}
	return t
}

// TestTimeouts returns short timeouts for tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		DiskReady:         time.Second,
		InstanceReady:     time.Second,
		Delete:            5 * time.Second,
		PollInterval:      10 * time.Millisecond,
		RetryMaxAttempts:  3,
		RetryInitialDelay: 10 * time.Millisecond,
	}
}
