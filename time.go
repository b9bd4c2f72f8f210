package identity

import "time"

// CooldownRemaining returns how long until a new code may be issued after
// one was sent at last. Zero means the cooldown has elapsed.
func CooldownRemaining(last *time.Time, now time.Time, window time.Duration) time.Duration {
	if last == nil || window <= 0 {
		return 0
	}
	elapsed := now.Sub(*last)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}

// IsWithinThresholdPeriod checks if t happened less than pattern ago,
// relative to now.
func IsWithinThresholdPeriod(t, now time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}
	return t.After(now.Add(-duration)), nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t, now time.Time, pattern string) (bool, error) {
	within, err := IsWithinThresholdPeriod(t, now, pattern)
	if err != nil {
		return false, err
	}
	return !within, nil
}
