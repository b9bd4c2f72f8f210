package identity

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateOTP_Format(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 150, "codes should not repeat often")
}

func TestOTPIssuer_Issue(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	issuer := NewOTPIssuer(0)
	issuer.Generate = func() (string, error) { return "004217", nil }

	issued, err := issuer.Issue(now)
	require.NoError(t, err)
	assert.Equal(t, "004217", issued.Code)
	assert.Equal(t, now.Add(DefaultOTPTTL), issued.ExpiresAt)
	assert.NoError(t, CompareOTP("004217", issued.Hash))
	assert.Error(t, CompareOTP("4217", issued.Hash))
}

func TestOTPIssuer_GeneratorError(t *testing.T) {
	issuer := NewOTPIssuer(time.Minute)
	issuer.Generate = func() (string, error) { return "", errors.New("entropy exhausted") }

	_, err := issuer.Issue(time.Now())
	assert.Error(t, err)
}

func TestVerifyOTP(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	hash, err := HashOTP("123456")
	require.NoError(t, err)
	expires := now.Add(DefaultOTPTTL)

	tests := []struct {
		name    string
		code    string
		hash    string
		expires *time.Time
		at      time.Time
		want    bool
	}{
		{name: "valid", code: "123456", hash: hash, expires: &expires, at: now, want: true},
		{name: "one second before expiry", code: "123456", hash: hash, expires: &expires, at: expires.Add(-time.Second), want: true},
		{name: "at expiry", code: "123456", hash: hash, expires: &expires, at: expires, want: false},
		{name: "after expiry", code: "123456", hash: hash, expires: &expires, at: expires.Add(time.Second), want: false},
		{name: "wrong code", code: "654321", hash: hash, expires: &expires, at: now, want: false},
		{name: "no code stored", code: "123456", hash: "", expires: &expires, at: now, want: false},
		{name: "no expiry stored", code: "123456", hash: hash, expires: nil, at: now, want: false},
		{name: "empty code", code: "", hash: hash, expires: &expires, at: now, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyOTP(tt.code, tt.hash, tt.expires, tt.at))
		})
	}
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	assert.Zero(t, CooldownRemaining(nil, now, time.Minute))
	assert.Zero(t, CooldownRemaining(at(time.Minute), now, time.Minute))
	assert.Zero(t, CooldownRemaining(at(0), now, 0))
	assert.Equal(t, 20*time.Second, CooldownRemaining(at(40*time.Second), now, time.Minute))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(0))
	assert.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 15, RetryAfterSeconds(14*time.Second+time.Millisecond))
	assert.Equal(t, 60, RetryAfterSeconds(time.Minute))
}

func TestThresholdPeriod(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	within, err := IsWithinThresholdPeriod(now.Add(-10*time.Minute), now, "15m")
	require.NoError(t, err)
	assert.True(t, within)

	outside, err := IsOutsideThresholdPeriod(now.Add(-20*time.Minute), now, "15m")
	require.NoError(t, err)
	assert.True(t, outside)

	_, err = IsWithinThresholdPeriod(now, now, "fortnight")
	assert.Error(t, err)
}
