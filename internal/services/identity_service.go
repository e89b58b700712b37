package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/auth"
	"github.com/yukikurage/hierarchy-api/internal/constants"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/notify"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"github.com/yukikurage/hierarchy-api/internal/utils"
	"gorm.io/gorm"
)

// IdentityService stores users, their credentials and activation state.
type IdentityService struct {
	store    repository.Store
	hasher   auth.PasswordHasher
	sender   notify.Sender
	resolver *ScopeResolver
	now      func() time.Time
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(store repository.Store, hasher auth.PasswordHasher, sender notify.Sender, resolver *ScopeResolver) *IdentityService {
	return &IdentityService{
		store:    store,
		hasher:   hasher,
		sender:   sender,
		resolver: resolver,
		now:      time.Now,
	}
}

type credentials struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

// RegisterInput holds a public sign-up. Registered accounts are admins.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an admin account.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.createUser(ctx, credentials{
		Name:     strings.TrimSpace(input.Name),
		Email:    normalizeEmail(input.Email),
		Password: input.Password,
	}, models.RoleAdmin, nil)
}

// CreateUserInput holds a user created by an admin or a manager.
type CreateUserInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	Role            models.Role
}

// CreateUser creates an unplaced user. Admin accounts cannot be created this way.
// The user joins the tenant of the creating actor and stays reachable from it
// while unplaced.
func (s *IdentityService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = models.RoleNoRole
	}
	if role == models.RoleAdmin {
		return nil, fmt.Errorf("admin accounts cannot be created: %w", ErrRoleProtected)
	}
	if !role.Valid() {
		return nil, invalidField("role", "must be one of manager publisher norole")
	}
	if input.Password != input.PasswordConfirm {
		return nil, invalidField("password_confirm", "must match password")
	}

	return s.createUser(ctx, credentials{
		Name:     strings.TrimSpace(input.Name),
		Email:    normalizeEmail(input.Email),
		Password: input.Password,
	}, role, scope.TenantID)
}

func (s *IdentityService) createUser(ctx context.Context, in credentials, role models.Role, tenantID *uint64) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateIdentifier
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		TenantID:     tenantID,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateIdentifier
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logWithFields(ctx, logrus.InfoLevel, "user created", logrus.Fields{"user_id": user.ID, "role": role})
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the active user.
func (s *IdentityService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrInactiveAccount
	}
	return user, nil
}

// FindByID retrieves a user by ID without scope checks.
func (s *IdentityService) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// FindByCredential retrieves a user by email.
func (s *IdentityService) FindByCredential(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// ListUsers lists the users visible to the actor.
func (s *IdentityService) ListUsers(ctx context.Context, page utils.PaginationParams) ([]models.User, int64, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, 0, err
	}
	scope, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, 0, err
	}

	users, total, err := s.store.Users().List(ctx, scope.Filter(), page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetUser returns a user visible to the actor.
func (s *IdentityService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.AuthorizeUser(ctx, actor, ActionRead, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetActive sets the activation flag of a placed user. A nil active toggles it.
func (s *IdentityService) SetActive(ctx context.Context, userID uint64, active *bool) (*models.User, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = withConflictRetry(ctx, "set_active", func() error {
		u, err := s.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.Role == models.RoleAdmin {
			return fmt.Errorf("admin accounts cannot be deactivated: %w", ErrRoleProtected)
		}
		if err := s.resolver.AuthorizeUser(ctx, actor, ActionUpdate, u); err != nil {
			return err
		}
		if !u.Placed() {
			return fmt.Errorf("user must be assigned before activation: %w", ErrUnassigned)
		}

		if active == nil {
			u.Active = !u.Active
		} else {
			u.Active = *active
		}
		if err := s.store.Users().Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *IdentityService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	if len(next) < constants.MinPasswordLength {
		return invalidField("new_password", fmt.Sprintf("must be at least %d characters", constants.MinPasswordLength))
	}

	return withConflictRetry(ctx, "change_password", func() error {
		user, err := s.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(user.PasswordHash, current) {
			return ErrInvalidCredentials
		}
		hash, err := s.hasher.Hash(next)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
		return s.store.Users().Update(ctx, user)
	})
}

// ForgotPassword issues a reset token and sends it to the user.
// The token is withdrawn when the notification cannot be sent.
func (s *IdentityService) ForgotPassword(ctx context.Context, email, resetURL string) error {
	user, err := s.FindByCredential(ctx, email)
	if err != nil {
		return err
	}

	token, digest, err := utils.GenerateResetToken()
	if err != nil {
		return err
	}
	err = withConflictRetry(ctx, "forgot_password", func() error {
		u, err := s.FindByID(ctx, user.ID)
		if err != nil {
			return err
		}
		expire := s.now().Add(constants.ResetTokenTTL)
		u.ResetPasswordToken = &digest
		u.ResetPasswordExpire = &expire
		if err := s.store.Users().Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return err
	}

	msg := notify.Message{
		Recipient: user.Email,
		Subject:   "Password reset",
		Body: fmt.Sprintf("You requested a password reset. Send a PUT request to %s/%s within %d minutes.",
			strings.TrimRight(resetURL, "/"), token, int(constants.ResetTokenTTL.Minutes())),
	}
	if sendErr := s.sender.Send(ctx, msg); sendErr != nil {
		logWithFields(ctx, logrus.ErrorLevel, "reset notification failed", logrus.Fields{
			"user_id": user.ID,
			"error":   sendErr.Error(),
		})
		user.ClearResetToken()
		if err := s.store.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to withdraw reset token: %w", err)
		}
		return fmt.Errorf("%w: %v", ErrNotificationFailed, sendErr)
	}
	return nil
}

// ResetPassword redeems a reset token. Tokens are single use.
func (s *IdentityService) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	if len(password) < constants.MinPasswordLength {
		return nil, invalidField("password", fmt.Sprintf("must be at least %d characters", constants.MinPasswordLength))
	}

	user, err := s.store.Users().FindByResetToken(ctx, utils.HashResetToken(token), s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("failed to find reset token: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	user.ClearResetToken()
	if err := s.store.Users().Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// another redemption won the race
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("failed to reset password: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
