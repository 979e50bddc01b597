// Package session answers whether the device currently holds a usable
// cloud account session. All checks are local; the access token is a
// JWT whose expiry can be read without a server round-trip.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/quillnote/backend/internal/errors"
	"github.com/quillnote/backend/internal/models"
)

// Store provides the persisted account session. Implemented by
// db.Repository; returns an error when the device has never signed in.
type Store interface {
	GetAccountSession() (*models.AccountSession, error)
}

// Checker is the authentication precondition consulted by the sync
// engine before any network work.
type Checker interface {
	// IsAuthenticated reports whether a non-expired session exists.
	IsAuthenticated() bool

	// AccessToken returns the bearer token for API calls, or an
	// AUTHENTICATION_ERROR when no usable session exists.
	AccessToken() (string, error)
}

// TokenSession is a Checker over a persisted JWT session.
type TokenSession struct {
	store  Store
	leeway time.Duration
}

// NewTokenSession creates a TokenSession. leeway treats tokens expiring
// within the window as already expired so a sync pass doesn't start
// with a token about to lapse mid-flight.
func NewTokenSession(store Store, leeway time.Duration) *TokenSession {
	return &TokenSession{store: store, leeway: leeway}
}

// IsAuthenticated implements Checker.
func (s *TokenSession) IsAuthenticated() bool {
	_, err := s.AccessToken()
	return err == nil
}

// AccessToken implements Checker.
func (s *TokenSession) AccessToken() (string, error) {
	sess, err := s.store.GetAccountSession()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrAuthentication, "no account session", err)
	}
	if !sess.IsEnabled {
		return "", apperrors.New(apperrors.ErrAuthentication, "sync is disabled for this account")
	}
	if sess.AccessToken == "" {
		return "", apperrors.New(apperrors.ErrAuthentication, "account session has no access token")
	}

	if err := s.checkExpiry(sess.AccessToken); err != nil {
		return "", err
	}
	return sess.AccessToken, nil
}

// checkExpiry reads the exp claim without verifying the signature; the
// server is the authority on validity, this only avoids pointless
// round-trips with a token known to be stale.
func (s *TokenSession) checkExpiry(token string) error {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return apperrors.Wrap(apperrors.ErrAuthentication, "malformed access token", err)
	}

	if claims.ExpiresAt == nil {
		// Tokens without exp never expire locally
		return nil
	}

	if time.Now().Add(s.leeway).After(claims.ExpiresAt.Time) {
		return apperrors.New(apperrors.ErrAuthentication, "access token expired")
	}
	return nil
}
