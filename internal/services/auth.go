package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/warmofmeme/memeboard/internal/aspect"
	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
	"github.com/warmofmeme/memeboard/internal/repository"
	"github.com/warmofmeme/memeboard/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const authTarget = "AuthService"

var (
	errMissingUsers    = errors.New("services: user repository is required")
	errMissingStore    = errors.New("services: record store is required")
	errMissingRegistry = errors.New("services: aspect registry is required")
)

// AuthServiceConfig describes the dependencies of the auth service.
type AuthServiceConfig struct {
	Users   *repository.Users
	Store   *store.Store
	Aspects *aspect.Registry
	Logger  *zap.Logger
}

// AuthService owns the single current-session user. The session is held in
// memory and mirrored under a dedicated store key (password stripped) so it
// survives restarts. The in-memory pointer is read from request goroutines
// and replaced on login/logout, so access goes through mu.
type AuthService struct {
	users   *repository.Users
	store   *store.Store
	aspects *aspect.Registry
	logger  *zap.Logger

	mu      sync.RWMutex
	current *models.User
}

// NewAuthService constructs the auth service and loads any persisted session.
func NewAuthService(cfg AuthServiceConfig) (*AuthService, error) {
	if cfg.Users == nil {
		return nil, errMissingUsers
	}
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Aspects == nil {
		return nil, errMissingRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &AuthService{
		users:   cfg.Users,
		store:   cfg.Store,
		aspects: cfg.Aspects,
		logger:  logger,
	}
	if err := service.loadSession(); err != nil {
		return nil, err
	}
	return service, nil
}

// RegisterInput is the payload for account registration.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate applies the registration field rules.
func (in RegisterInput) Validate() error {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return domain.NewValidationError("All fields are required")
	}
	if result := checkPassword(in.Password); !result.IsValid {
		return domain.NewValidationError(result.Error)
	}
	return nil
}

// Login verifies the credentials, establishes the session, and returns the
// user with the password stripped.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	call := aspect.Call{Target: authTarget, Operation: "Login"}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (*models.User, error) {
		user, err := s.users.ByUsername(username)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("username: %w", domain.ErrNotFound)
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
			return nil, domain.ErrInvalidCredential
		}
		if err := s.saveSession(user); err != nil {
			return nil, err
		}
		public := user.Public()
		return &public, nil
	})
}

// Register creates a member account with zeroed stats and establishes the
// session for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	call := aspect.Call{
		Target:       authTarget,
		Operation:    "Register",
		Capabilities: aspect.CapMutating | aspect.CapValidated,
		Payload:      input,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (*models.User, error) {
		if existing, err := s.users.ByUsername(input.Username); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, fmt.Errorf("username is already taken: %w", domain.ErrAlreadyExists)
		}
		if existing, err := s.users.ByEmail(input.Email); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, fmt.Errorf("email is already registered: %w", domain.ErrAlreadyExists)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		user, err := s.users.Create(models.User{
			Username: input.Username,
			Email:    input.Email,
			Password: string(hash),
			Role:     models.RoleMember,
			Stats:    models.UserStats{},
		})
		if err != nil {
			return nil, err
		}
		if err := s.saveSession(&user); err != nil {
			return nil, err
		}
		s.logger.Info("user registered", zap.String("username", user.Username))
		public := user.Public()
		return &public, nil
	})
}

// Logout clears the session in memory and in the store.
func (s *AuthService) Logout(ctx context.Context) error {
	call := aspect.Call{Target: authTarget, Operation: "Logout"}
	_, err := s.aspects.Invoke(ctx, call, func(context.Context) (any, error) {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		return nil, s.store.DeleteValue(store.SessionKey)
	})
	return err
}

// CurrentUser returns the session user, if any.
func (s *AuthService) CurrentUser() (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

// IsAuthenticated reports whether a session is established.
func (s *AuthService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// IsModerator reports whether the session user holds the moderator role.
func (s *AuthService) IsModerator() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Role == models.RoleModerator
}

// UpdateProfile merges the patch onto the user and, when the target is the
// session user, refreshes the persisted session copy.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error) {
	call := aspect.Call{
		Target:       authTarget,
		Operation:    "UpdateProfile",
		Capabilities: aspect.CapMutating | aspect.CapRequiresAuth,
	}
	return aspect.Do(s.aspects, ctx, call, func(context.Context) (*models.User, error) {
		if patch.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			hashed := string(hash)
			patch.Password = &hashed
		}
		updated, err := s.users.Update(userID, patch)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		if current, ok := s.CurrentUser(); ok && current.ID == userID {
			if err := s.saveSession(updated); err != nil {
				return nil, err
			}
		}
		public := updated.Public()
		return &public, nil
	})
}

func (s *AuthService) loadSession() error {
	raw, ok, err := s.store.GetValue(store.SessionKey)
	if err != nil {
		return err
	}
	if !ok || raw == "" {
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// A corrupt session is dropped rather than blocking startup.
		s.logger.Warn("discarding corrupt session record", zap.Error(err))
		return s.store.DeleteValue(store.SessionKey)
	}
	user.Normalize()
	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()
	return nil
}

func (s *AuthService) saveSession(user *models.User) error {
	public := user.Public()
	encoded, err := json.Marshal(public)
	if err != nil {
		return err
	}
	if err := s.store.SetValue(store.SessionKey, string(encoded)); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = &public
	s.mu.Unlock()
	return nil
}
