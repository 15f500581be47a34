package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
	"github.com/myrjola/manuscript/internal/repositories"
	"github.com/myrjola/manuscript/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by SignIn without revealing whether the email or the password was wrong.
var ErrInvalidCredentials = errors.NewSentinel("invalid email or password")

// Service signs users up and in with email and password and tracks them in the session.
type Service struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	users          *repositories.UserRepository
	validator      *validation.Validator
	bcryptCost     int
	// dummyHash is compared against when the email is unknown so that both failure paths cost the same.
	dummyHash []byte
}

// New creates the service. bcryptCost is usually bcrypt.DefaultCost, tests use bcrypt.MinCost.
func New(
	logger *slog.Logger,
	sessionManager *scs.SessionManager,
	users *repositories.UserRepository,
	bcryptCost int,
) (*Service, error) {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("manuscript-dummy-password"), bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "generate dummy hash")
	}
	return &Service{
		logger:         logger.With("source", "auth"),
		sessionManager: sessionManager,
		users:          users,
		validator:      validation.New(),
		bcryptCost:     bcryptCost,
		dummyHash:      dummyHash,
	}, nil
}

type signUpInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	// bcrypt only considers the first 72 bytes.
	Password    string `json:"password"    validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
}

// SignUp registers a user and signs them in.
//
// The display name defaults to the local part of the email. Returns models.ErrConflict for a registered email and
// models.ErrInvalidInput for malformed input.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = models.DefaultDisplayName(email)
	}
	input := signUpInput{Email: email, Password: password, DisplayName: displayName}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	user, err := s.users.Create(ctx, email, displayName, string(hash))
	if err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	if err = s.startSession(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// SignIn verifies the credentials and signs the user in. Returns ErrInvalidCredentials on any mismatch.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, errors.Wrap(err, "get user by email")
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "compare password hash")
	}
	if err = s.startSession(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// SignOut forgets the signed-in user and rotates the session token.
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.sessionManager.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	s.sessionManager.Remove(ctx, string(userIDSessionKey))
	return nil
}

// CurrentUser returns the signed-in user or nil for anonymous sessions.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, nil //nolint:nilnil // anonymous session.
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get current user")
	}
	return user, nil
}

func (s *Service) startSession(ctx context.Context, userID string) error {
	// Renewing the token on privilege change prevents session fixation.
	if err := s.sessionManager.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	s.sessionManager.Put(ctx, string(userIDSessionKey), userID)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "user signed in", slog.String("user_id", userID))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
