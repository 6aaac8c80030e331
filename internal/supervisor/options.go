package supervisor

import "time"

type options struct {
	launcher    Launcher
	now         func() time.Time
	killTimeout time.Duration
}

// Option configures a registry
type Option func(*options)

// WithLauncher replaces the process launcher
func WithLauncher(l Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithClock replaces the time source used for start times and elapsed time
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithKillTimeout sets how long a stopped process may linger before SIGKILL
func WithKillTimeout(d time.Duration) Option {
	return func(o *options) { o.killTimeout = d }
}

func applyOptions(opts []Option) options {
	o := options{
		launcher:    ExecLauncher{},
		now:         time.Now,
		killTimeout: defaultKillTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
