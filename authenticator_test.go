package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	identity "github.com/trustlayer/go-identity"
)

type recordingSink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event identity.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []identity.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]identity.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestAuthenticator(provider identity.IdentityProvider, sink identity.ActivitySink) *identity.Auther {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens := identity.NewTokenService(newMockConfig(168), nil).WithClock(clock)
	return identity.NewAuthenticator(provider, tokens).
		WithActivitySink(sink).
		WithClock(clock)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("issues token and session", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &recordingSink{}
		auther := newTestAuthenticator(provider, sink)

		provider.On("VerifyIdentity", ctx, "alice@example.com", "secret1").Return(alice, nil).Once()

		res, err := auther.Authenticate(ctx, " Alice@Example.com ", "secret1")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		require.NotNil(t, res.Session)
		assert.Equal(t, alice.id, res.Session.UserID)
		assert.Equal(t, alice.email, res.Session.Email)
		assert.Equal(t, alice.name, res.Session.Name)
		assert.Equal(t, "user", res.Session.Role)
		require.NotNil(t, res.Session.ExpirationDate)
		assert.True(t, res.ExpiresAt.Equal(*res.Session.ExpirationDate))

		session, err := auther.SessionFromToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, res.Session.UserID, session.UserID)

		assert.Equal(t, []identity.ActivityEventType{identity.ActivityEventLoginSuccess}, sink.types())
		provider.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &recordingSink{}
		auther := newTestAuthenticator(provider, sink)

		provider.On("VerifyIdentity", ctx, "alice@example.com", "wrong").
			Return(nil, identity.ErrInvalidCredentials).Once()

		token, err := auther.Login(ctx, "alice@example.com", "wrong")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
		assert.Equal(t, []identity.ActivityEventType{identity.ActivityEventLoginFailure}, sink.types())
	})

	t.Run("locked out", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &recordingSink{}
		auther := newTestAuthenticator(provider, sink)

		provider.On("VerifyIdentity", ctx, mock.Anything, mock.Anything).
			Return(nil, identity.ErrTooManyLoginAttempts).Once()

		_, err := auther.Authenticate(ctx, "alice@example.com", "secret1")
		assert.ErrorIs(t, err, identity.ErrTooManyLoginAttempts)
		assert.Equal(t, []identity.ActivityEventType{identity.ActivityEventLoginLocked}, sink.types())
	})
}

func TestSessionFromToken_Invalid(t *testing.T) {
	auther := newTestAuthenticator(new(MockIdentityProvider), nil)

	_, err := auther.SessionFromToken("bogus")
	assert.ErrorIs(t, err, identity.ErrTokenMalformed)
}
