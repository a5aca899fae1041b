// Package nonceService issues and checks the signed request tokens that
// protect forms and download links.
package nonceService

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"project-submission/internal/errs"
	"project-submission/internal/model/user"
)

const (
	ActionDownload   = "download"
	ActionSignup     = "signup"
	ActionNewProject = "new-project"
	ActionNewMessage = "new-message"
)

var Actions = []string{ActionDownload, ActionSignup, ActionNewProject, ActionNewMessage}

type Claims struct {
	Action string `json:"act"`
	UserID uint32 `json:"uid"`
	jwt.RegisteredClaims
}

// SpentStore remembers consumed token ids until they expire.
type SpentStore interface {
	MarkUsed(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

type NonceService struct {
	secret []byte
	ttl    time.Duration
	spent  SpentStore
	now    func() time.Time
}

func New(secret string, ttl time.Duration, spent SpentStore) *NonceService {
	return &NonceService{secret: []byte(secret), ttl: ttl, spent: spent, now: time.Now}
}

// Create signs a token for action, bound to the actor's session and user id.
func (s *NonceService) Create(action string, actor *user.Actor) (string, error) {
	if actor == nil || actor.SessionID == "" {
		return "", fmt.Errorf("create %s token: no session", action)
	}
	now := s.now()
	claims := Claims{
		Action: action,
		UserID: actor.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   actor.SessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, expiry, action, session and user. It has no side effects.
func (s *NonceService) Verify(token, action string, actor *user.Actor) (*Claims, error) {
	if token == "" || actor == nil {
		return nil, errs.ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if claims.Action != action || claims.Subject != actor.SessionID || claims.UserID != actor.ID {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}

// Consume verifies the token and marks it spent, so a form token is accepted once.
func (s *NonceService) Consume(ctx context.Context, token, action string, actor *user.Actor) error {
	claims, err := s.Verify(token, action, actor)
	if err != nil {
		return err
	}
	fresh, err := s.spent.MarkUsed(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return fmt.Errorf("mark token spent: %w", err)
	}
	if !fresh {
		return errors.Join(errs.ErrInvalidToken, errors.New("token already used"))
	}
	return nil
}
