package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/library-catalog/internal/apperror"
	"github.com/iliyamo/library-catalog/internal/model"
	"github.com/iliyamo/library-catalog/internal/queue"
	"github.com/iliyamo/library-catalog/internal/repository"
	"github.com/iliyamo/library-catalog/internal/utils"
)

// Login tabs. Anything that is not the admin tab is treated as the user tab.
const (
	LoginTypeUser  = "user"
	LoginTypeAdmin = "admin"
)

// Client-facing auth messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgMissingCredentials = "Missing email or password"
	MsgUseUserTab         = "Regular users must use the User tab to login"
	MsgUseAdminTab        = "Admin users must use the Admin tab to login"
	MsgDeactivated        = "Your account has been deactivated. Please contact an administrator."
	MsgAdminSignup        = "Admin registration is restricted. Please contact system administrator."
	MsgPasswordTooShort   = "Password must be at least 8 characters long"
	MsgPasswordTooLong    = "Password must be at most 72 characters long"
	MsgEmailExists        = "Email already exists"
	MsgCreateUserFailed   = "Failed to create user"
)

// NewUser is the input of CreateUser. Password is plain text.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// AuthService owns credentials: hashing, lookup and account creation.
type AuthService struct {
	Users  *repository.UserRepo
	Events Publisher
	Log    *slog.Logger
}

func NewAuthService(users *repository.UserRepo, events Publisher, log *slog.Logger) *AuthService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AuthService{Users: users, Events: events, Log: log}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	return utils.HashPassword(password)
}

func (s *AuthService) VerifyPassword(password, hash string) bool {
	return utils.VerifyPassword(password, hash)
}

// CreateUser hashes the password and inserts an active account. Role
// defaults to user.
func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (model.User, error) {
	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return model.User{}, apperror.Internal(MsgCreateUserFailed, err)
	}
	u, err := s.Users.Create(ctx, model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Active:       true,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		return model.User{}, apperror.Conflict(MsgEmailExists)
	}
	if err != nil {
		return model.User{}, apperror.Internal(MsgCreateUserFailed, err)
	}
	return u, nil
}

// Register applies the public sign-up rules and creates a user account.
// No session is issued; the caller must log in afterwards.
func (s *AuthService) Register(ctx context.Context, in NewUser) (model.User, error) {
	if in.Role == model.RoleAdmin {
		return model.User{}, apperror.Forbidden(MsgAdminSignup)
	}
	if len(in.Password) < utils.MinPasswordLength {
		return model.User{}, apperror.Validation(MsgPasswordTooShort)
	}
	if len(in.Password) > utils.MaxPasswordLength {
		return model.User{}, apperror.Validation(MsgPasswordTooLong)
	}
	in.Role = model.RoleUser
	u, err := s.CreateUser(ctx, in)
	if err != nil {
		return model.User{}, err
	}

	ev := queue.NewActivityEvent(queue.EventUserRegistered)
	ev.UserID = u.ID
	s.Events.Publish(ctx, ev)
	return u, nil
}

// ValidateUser checks credentials. Unknown email and wrong password yield
// the same error.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (model.Identity, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return model.Identity{}, err
	}
	return u.Identity(), nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnVerify(password)
		return model.User{}, apperror.Unauthorized(MsgInvalidCredentials)
	}
	if err != nil {
		return model.User{}, apperror.Internal("An error occurred during login", err)
	}
	if u.PasswordHash == "" || !s.VerifyPassword(password, u.PasswordHash) {
		return model.User{}, apperror.Unauthorized(MsgInvalidCredentials)
	}
	return u, nil
}

// Login runs the full login decision: presence, credentials, tab versus
// role, then the active flag.
func (s *AuthService) Login(ctx context.Context, email, password, loginType string) (model.Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.Identity{}, apperror.Validation(MsgMissingCredentials)
	}
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		if s.Log != nil {
			s.Log.Info("login rejected", "email", email, "error", err)
		}
		return model.Identity{}, err
	}

	adminTab := loginType == LoginTypeAdmin
	switch {
	case adminTab && !u.IsAdmin():
		return model.Identity{}, apperror.Forbidden(MsgUseUserTab)
	case !adminTab && u.IsAdmin():
		return model.Identity{}, apperror.Forbidden(MsgUseAdminTab)
	case !u.Active:
		return model.Identity{}, apperror.Forbidden(MsgDeactivated)
	}
	return u.Identity(), nil
}
