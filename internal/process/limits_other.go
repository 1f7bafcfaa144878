//go:build !linux

package process

// LimitsEnforced reports whether applyLimits enforces Limits on this platform.
const LimitsEnforced = false

// wrapLimits leaves c unchanged where prlimit is unavailable.
func wrapLimits(c Command, _ func(string) (string, error)) (Command, Limits, error) {
	return c, c.Limits, nil
}

// applyLimits is a no-op where prlimit is unavailable.
func applyLimits(int, Limits) error {
	return nil
}
