package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookshelf/internal/domain"
	"bookshelf/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering with an email that already has an account.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUsernameTaken is returned when registering with a username that already has an account.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrValidation wraps input errors that should surface as a bad request.
	ErrValidation = errors.New("validation failed")
)

// UserService describes account lifecycle operations. Every profile it
// returns has been stripped of the credential hash.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.UserProfile, error)
	Authenticate(ctx context.Context, email, password string) (*domain.UserProfile, error)
	GetProfile(ctx context.Context, id string) (*domain.UserProfile, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.UserProfile, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		ProfileImage: defaultProfileImage(username),
	}

	if err := s.users.Create(ctx, user); err != nil {
		// registration raced another request for the same email/username
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user.Profile(), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user.Profile(), nil
}

func (s *userService) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

func defaultProfileImage(username string) string {
	return "https://api.dicebear.com/7.x/lorelei/svg?seed=" + username
}
