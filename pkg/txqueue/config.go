package txqueue

import "time"

// Defaults tested with Proove and Nexa receivers.
const (
	DefaultMaxRepeat    = 3
	DefaultInterval     = 300 * time.Millisecond
	DefaultMaxResendTTL = 10 * time.Second
	DefaultSendTimeout  = 2 * time.Second
)

// Config is fixed for the lifetime of a Scheduler.
type Config struct {
	// MaxRepeat is the number of repeats after the first transmission.
	MaxRepeat int
	// Interval separates two scheduler ticks.
	Interval time.Duration
	// MaxResendTTL bounds how long a command keeps repeating once sent.
	MaxResendTTL time.Duration
	// SendTimeout bounds a single transport send.
	SendTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRepeat:    DefaultMaxRepeat,
		Interval:     DefaultInterval,
		MaxResendTTL: DefaultMaxResendTTL,
		SendTimeout:  DefaultSendTimeout,
	}
}

// withDefaults fills zero or negative values, leaving MaxRepeat = 0 alone
// (send once, never repeat).
func (c Config) withDefaults() Config {
	if c.MaxRepeat < 0 {
		c.MaxRepeat = DefaultMaxRepeat
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxResendTTL <= 0 {
		c.MaxResendTTL = DefaultMaxResendTTL
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}
