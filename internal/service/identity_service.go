package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blog-content-api/internal/auth"
	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/repository"
	"github.com/blog-content-api/internal/upload"
	"github.com/blog-content-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxAvatarReferenceLength = 300

// identityService is the concrete implementation of IdentityService
type identityService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenIssuer
	avatars   *upload.AvatarStore
	log       zerolog.Logger
}

// newIdentityService creates a new IdentityService
func newIdentityService(
	repos *repository.Repositories,
	validator *validation.Validator,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenIssuer,
	avatars *upload.AvatarStore,
	log zerolog.Logger,
) *identityService {
	return &identityService{
		repos:     repos,
		validator: validator,
		hasher:    hasher,
		tokens:    tokens,
		avatars:   avatars,
		log:       log.With().Str("service", "identity").Logger(),
	}
}

// Register creates an account. The handle is checked before the email.
func (s *identityService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if errs := s.validator.ValidateRegistration(req); len(errs) > 0 {
		return nil, models.NewValidationError(errs)
	}

	taken, err := s.repos.User.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, models.ErrDuplicateHandle
	}

	taken, err = s.repos.User.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, models.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return user, nil
}

// Authenticate checks credentials. Unknown handles and wrong passwords
// produce the same error after the same amount of work.
func (s *identityService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repos.User.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		s.hasher.CompareDummy(password)
		return nil, models.ErrInvalidCredentials
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a session token
func (s *identityService) Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error) {
	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if models.KindOf(err) == models.KindAuthorization {
			s.log.Warn().Str("username", req.Username).Msg("Failed login attempt")
		}
		return nil, err
	}

	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("User logged in")
	return &models.Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// ChangePassword replaces the password after verifying the old one
func (s *identityService) ChangePassword(ctx context.Context, userID string, req *models.ChangePasswordRequest) error {
	if errs := s.validator.ValidatePasswordChange(req); len(errs) > 0 {
		return models.NewValidationError(errs)
	}

	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return models.ErrUserNotFound
	}
	if !s.hasher.Compare(user.PasswordHash, req.OldPassword) {
		return models.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repos.User.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("Password changed")
	return nil
}

// SetAvatar overwrites the avatar reference
func (s *identityService) SetAvatar(ctx context.Context, userID, reference string) (*models.User, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" || len(reference) > maxAvatarReferenceLength {
		return nil, models.NewValidationError([]models.ValidationError{{
			Field:   "avatar",
			Message: fmt.Sprintf("avatar must be 1-%d characters", maxAvatarReferenceLength),
		}})
	}

	if err := s.repos.User.UpdateAvatar(ctx, userID, reference); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

// UploadAvatar stores the file and points the avatar at it
func (s *identityService) UploadAvatar(ctx context.Context, userID, filename string, src io.Reader) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	reference, err := s.avatars.Save(user.ID, filename, src)
	if err != nil {
		return nil, err
	}
	return s.SetAvatar(ctx, userID, reference)
}

// GetUser loads a user or returns ErrUserNotFound
func (s *identityService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repos.User.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// Profile returns public account fields with the newest public articles
func (s *identityService) Profile(ctx context.Context, username string) (*models.Profile, error) {
	user, err := s.repos.User.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	articles, _, err := s.repos.Article.ListPublic(ctx, models.ArticleFilter{
		AuthorID: user.ID,
		Limit:    models.ProfileArticles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	return &models.Profile{User: user.PublicProfile(), Articles: teasers(articles)}, nil
}
