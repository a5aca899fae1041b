package authService

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"project-submission/internal/errs"
	"project-submission/internal/model/fileInfo"
	"project-submission/internal/model/project"
	"project-submission/internal/model/user"
	"project-submission/internal/validation"
	"project-submission/pkg/logger"
)

const secretKeyLength = 24

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uint32) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	AddRole(ctx context.Context, id uint32, role string) error
}

type SessionStore interface {
	SaveSession(ctx context.Context, sessionID string, userID uint32, ttl time.Duration) error
	ValidateSession(ctx context.Context, sessionID string, userID uint32) (bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type ProjectGetter interface {
	GetByID(ctx context.Context, id uint32) (*project.Project, error)
}

type MessageGetter interface {
	GetByID(ctx context.Context, id uint32) (*project.Message, error)
}

type SessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// SignupForm is the submitted signup form. Avatar is nil when no file was sent.
type SignupForm struct {
	Username string           `form:"username" binding:"required"`
	Email    string           `form:"email" binding:"required,email"`
	Password string           `form:"password" binding:"required"`
	Privacy  string           `form:"privacy"`
	Honeypot string           `form:"honeyfield"`
	Avatar   *fileInfo.Upload `form:"-"`
}

type AuthService struct {
	users           UserStore
	sessions        SessionStore
	projects        ProjectGetter
	messages        MessageGetter
	validator       *validation.Validator
	jwtSecretKey    string
	sessionTTL      time.Duration
	privacyRequired bool
}

func New(users UserStore, sessions SessionStore, projects ProjectGetter, messages MessageGetter, validator *validation.Validator, jwtSecret string, sessionTTL time.Duration, privacyRequired bool) *AuthService {
	return &AuthService{
		users:           users,
		sessions:        sessions,
		projects:        projects,
		messages:        messages,
		validator:       validator,
		jwtSecretKey:    jwtSecret,
		sessionTTL:      sessionTTL,
		privacyRequired: privacyRequired,
	}
}

// SecureToken returns n characters drawn uniformly from the base58 alphabet.
func SecureToken(n int) (string, error) {
	const limit = 256 - 256%len(base58Alphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, base58Alphabet[int(b)%len(base58Alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// CheckSignup records every failing check of form in problems, in the order the
// visitor should read them. bindErr is the result of binding the request into
// form. Token and login checks belong to the caller.
func (s *AuthService) CheckSignup(ctx context.Context, form *SignupForm, bindErr error, problems *validation.Errors) error {
	failed := validation.FromBinding(bindErr)
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	form.Password = strings.TrimSpace(form.Password)

	if form.Honeypot != "" {
		problems.Add(validation.CodeUnauthorized)
	}
	if failed[validation.CodeError] {
		problems.Add(validation.CodeError)
	}
	if failed[validation.CodeMissingField] || form.Username == "" || form.Email == "" || form.Password == "" {
		problems.Add(validation.CodeMissingField)
	}
	if s.privacyRequired && form.Privacy == "" {
		problems.Add(validation.CodeNoAgreement)
	}
	if failed[validation.CodeInvalidEmail] {
		problems.Add(validation.CodeInvalidEmail)
	}

	taken, err := s.users.Exists(ctx, form.Username, form.Email)
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if taken {
		problems.Add(validation.CodeAlreadyRegistered)
	}

	if form.Avatar != nil {
		if code := s.validator.Avatar(form.Avatar); code != "" {
			problems.Add(code)
		}
	}
	return nil
}

// Register creates a project owner with a fresh secret key.
func (s *AuthService) Register(ctx context.Context, form *SignupForm) (*user.User, error) {
	return s.create(ctx, form.Username, form.Email, form.Password, user.RoleProjectOwner)
}

func (s *AuthService) create(ctx context.Context, username, email, password string, roles ...string) (*user.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	key, err := SecureToken(secretKeyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}

	u := &user.User{
		Username:  username,
		Email:     email,
		Password:  string(hashedPassword),
		SecretKey: key,
		Roles:     roles,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.GetLogger(ctx).Info("user registered", zap.Uint32("user_id", u.ID), zap.Strings("roles", roles))
	return u, nil
}

// Login accepts a username or an email address.
func (s *AuthService) Login(ctx context.Context, login, password string) (*user.User, error) {
	login = strings.TrimSpace(login)
	var (
		u   *user.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = s.users.GetByEmail(ctx, login)
	} else {
		u, err = s.users.GetByUsername(ctx, login)
	}
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, errs.ErrUnauthorized
	}
	return u, nil
}

// StartSession registers a new session for u and returns its signed token.
func (s *AuthService) StartSession(ctx context.Context, u *user.User) (string, *user.Actor, error) {
	sessionID := uuid.NewString()
	now := time.Now()
	claims := SessionClaims{
		Roles: u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecretKey))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	if err := s.sessions.SaveSession(ctx, sessionID, u.ID, s.sessionTTL); err != nil {
		return "", nil, fmt.Errorf("failed to save session: %w", err)
	}
	return token, user.NewActor(u, sessionID), nil
}

// Authenticate turns a session token into an actor. A token whose session was
// ended, or whose user no longer exists, is rejected even before it expires.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*user.Actor, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, errs.ErrInvalidToken
	}

	uid, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || claims.ID == "" {
		return nil, errs.ErrInvalidToken
	}
	alive, err := s.sessions.ValidateSession(ctx, claims.ID, uint32(uid))
	if err != nil {
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}
	if !alive {
		return nil, errs.ErrInvalidToken
	}

	// Roles are read from the account so grants take effect on the next request.
	u, err := s.users.GetByID(ctx, uint32(uid))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	return user.NewActor(u, claims.ID), nil
}

func (s *AuthService) Logout(ctx context.Context, actor *user.Actor) error {
	if actor == nil || actor.ID == 0 {
		return errs.ErrUnauthorized
	}
	if err := s.sessions.DeleteSession(ctx, actor.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ResolveUser finds the user a reference points at. Derived references use
// the author of the project, or the author (then the author email) of the message.
func (s *AuthService) ResolveUser(ctx context.Context, ref user.Ref) (*user.User, error) {
	switch ref.Kind {
	case user.RefByID:
		return s.users.GetByID(ctx, ref.ID)
	case user.RefByEmail:
		return s.users.GetByEmail(ctx, ref.Email)
	case user.RefDerived:
		switch ref.From {
		case user.ContentProject:
			p, err := s.projects.GetByID(ctx, ref.FromID)
			if err != nil {
				return nil, err
			}
			return s.users.GetByID(ctx, p.AuthorID)
		case user.ContentMessage:
			m, err := s.messages.GetByID(ctx, ref.FromID)
			if err != nil {
				return nil, err
			}
			if m.AuthorID != 0 {
				return s.users.GetByID(ctx, m.AuthorID)
			}
			if m.AuthorEmail != "" {
				return s.users.GetByEmail(ctx, m.AuthorEmail)
			}
			return nil, errs.ErrNotFound
		}
	}
	return nil, fmt.Errorf("unsupported user reference: %w", errs.ErrNotFound)
}

// EnsureAdmin makes sure an administrator account exists. An existing user
// with the same username is granted the role instead.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if password == "" {
		return nil
	}
	log := logger.GetLogger(ctx)

	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.HasRole(user.RoleAdministrator) {
			return nil
		}
		if err := s.users.AddRole(ctx, existing.ID, user.RoleAdministrator); err != nil {
			return fmt.Errorf("failed to grant administrator: %w", err)
		}
		log.Info("administrator role granted", zap.Uint32("user_id", existing.ID))
		return nil
	case errors.Is(err, errs.ErrNotFound):
		_, err := s.create(ctx, username, email, password, user.RoleAdministrator)
		return err
	default:
		return err
	}
}
