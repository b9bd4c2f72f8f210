package identity

import (
	"context"
	"errors"
	"time"
)

// AuthResult is returned by a successful authentication
type AuthResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Session   *SessionObject `json:"session"`
}

// Auther authenticates credentials and issues bearer tokens
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	activitySink ActivitySink
	clock        Clock
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokens TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokens,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

func (s *Auther) WithClock(c Clock) *Auther {
	s.clock = c
	return s
}

// Authenticate verifies email and password and issues a token. The
// session carries the same claims as the token.
func (s *Auther) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		event := ActivityEventLoginFailure
		if errors.Is(err, ErrTooManyLoginAttempts) {
			event = ActivityEventLoginLocked
		}
		s.emit(ctx, event, email, "")
		return nil, err
	}

	token, expiresAt, err := s.tokenService.Generate(identity)
	if err != nil {
		return nil, err
	}

	session, err := s.SessionFromToken(token)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, identity.Email(), identity.ID())

	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Session:   session,
	}, nil
}

// Login is Authenticate returning only the token
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	res, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	return res.Token, nil
}

// SessionFromToken validates token and returns its session
func (s *Auther) SessionFromToken(token string) (*SessionObject, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}
	return SessionFromClaims(claims)
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, email, userID string) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Email:      email,
		OccurredAt: s.clock.now(),
	})
}
