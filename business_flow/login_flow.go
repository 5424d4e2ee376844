package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearlens/campaign-engine/app/dto"
	"github.com/clearlens/campaign-engine/app/services"
	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/repository"
	"github.com/clearlens/campaign-engine/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginFlow handles staff authentication
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	staffRepo    repository.StaffRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	staffRepo repository.StaffRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		staffRepo:    staffRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

// Login authenticates a staff member by email and password. Failures are
// reported uniformly so the response does not reveal whether the account
// exists.
func (s *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	staff, err := s.staffRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up account", err)
	}
	if staff == nil {
		s.auditLoginFailure(ctx, email, "account not found", metadata)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrStaffNotFound)
	}

	actor := Actor{StaffID: staff.ID, Email: staff.Email, Role: staff.Role}

	if !staff.IsActive {
		errMsg := "account is inactive"
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionLoginFailed, fmt.Sprintf("Login rejected for %s: account inactive", email), false, &errMsg, metadata)
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		errMsg := "incorrect password"
		_ = createAuditLog(ctx, s.auditRepo, actor, models.AuditActionLoginFailed, fmt.Sprintf("Login rejected for %s: incorrect password", email), false, &errMsg, metadata)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := s.tokenService.GenerateTokens(staff.ID, staff.Role.String())
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to issue tokens", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.staffRepo.UpdateLastLogin(txCtx, staff.ID, utils.UTCNow()); err != nil {
			return err
		}
		return createAuditLog(txCtx, s.auditRepo, actor, models.AuditActionLoginSuccessful, fmt.Sprintf("Staff %s logged in", email), true, nil, metadata)
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to record login", err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenService.AccessTokenTTL().Seconds()),
		Staff:        ToStaffDTO(*staff),
	}, nil
}

// RefreshTokens exchanges a valid refresh token for a new token pair
func (s *LoginFlowImpl) RefreshTokens(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims, err := s.tokenService.ValidateToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_TOKEN", "Invalid refresh token", err)
	}

	staff, err := s.staffRepo.ByID(ctx, claims.StaffID)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up account", err)
	}
	if staff == nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Account not found", ErrStaffNotFound)
	}
	if !staff.IsActive {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	accessToken, newRefreshToken, err := s.tokenService.RefreshToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_TOKEN", "Invalid refresh token", err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenService.AccessTokenTTL().Seconds()),
		Staff:        ToStaffDTO(*staff),
	}, nil
}

// auditLoginFailure records a failed attempt for an unknown account
func (s *LoginFlowImpl) auditLoginFailure(ctx context.Context, email, reason string, metadata *ClientMetadata) {
	errMsg := reason
	_ = createAuditLog(ctx, s.auditRepo, Actor{}, models.AuditActionLoginFailed, fmt.Sprintf("Login rejected for %s: %s", email, reason), false, &errMsg, metadata)
}
