package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hospitall/hospitall/internal/platform/auth"
)

type Service struct {
	repo    Repository
	tokens  *auth.TokenIssuer
	revoked auth.RevocationStore
	now     func() time.Time
}

func NewService(repo Repository, tokens *auth.TokenIssuer, revoked auth.RevocationStore) *Service {
	return &Service{repo: repo, tokens: tokens, revoked: revoked, now: time.Now}
}

// -- Authentication --

// Register creates a doctor or patient account and signs it in. Admin
// accounts can only be created through CreateUser.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if req.Role == auth.RoleAdmin {
		return nil, ErrAdminSignup
	}
	u, err := s.newUser(ctx, req, true)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")
	return s.signIn(u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(u.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	return s.signIn(u)
}

// Refresh exchanges a refresh token for a new pair. The presented refresh
// token is revoked so it cannot be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if s.revoked != nil {
		var issuedAt time.Time
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID, claims.Subject, issuedAt)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}
	u, err := s.repo.GetByID(ctx, claims.UserID())
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactive
	}
	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.signIn(u)
}

// Logout revokes the access token of the current request and, when given,
// the caller's refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if claims := auth.ClaimsFromContext(ctx); claims != nil {
		if err := s.revoke(ctx, claims); err != nil {
			return err
		}
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if caller, ok := auth.UserUUIDFromContext(ctx); ok && caller != claims.UserID() {
		return ErrInvalidRefreshToken
	}
	return s.revoke(ctx, claims)
}

// Verify describes the caller and the lifetime of their access token.
func (s *Service) Verify(ctx context.Context) (*VerifyResponse, error) {
	u, err := s.callerUser(ctx)
	if err != nil {
		return nil, err
	}
	resp := &VerifyResponse{User: u}
	if claims := auth.ClaimsFromContext(ctx); claims != nil && claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
		resp.Expiring = claims.ExpiresWithin(s.now(), auth.ExpiringThreshold)
	}
	return resp, nil
}

// ChangePassword replaces the caller's password and invalidates every token
// issued before the change. A fresh pair is returned.
func (s *Service) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*AuthResponse, error) {
	u, err := s.callerUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(u.PasswordHash, req.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrWrongPassword
		}
		return nil, err
	}
	if err := auth.CheckPasswordStrength(req.NewPassword); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	cutoff := s.now()
	if err := s.revokeUserAt(ctx, u.ID, cutoff); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("user_id", u.ID.String()).Msg("password changed")
	pair, err := s.tokens.IssuePairAfter(u.Identity(), cutoff)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: u, Tokens: pair}, nil
}

// -- Administration --

func (s *Service) CreateUser(ctx context.Context, req *CreateRequest) (*User, error) {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return s.newUser(ctx, &req.RegisterRequest, active)
}

// GetUser returns a user to an administrator or to the user themselves.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	if auth.RoleFromContext(ctx) != auth.RoleAdmin {
		caller, ok := auth.UserUUIDFromContext(ctx)
		if !ok || caller != id {
			return nil, ErrForbidden
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		u.Email = normalizeEmail(*req.Email)
	}
	if req.CPF != nil {
		u.CPF = *req.CPF
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	wasActive := u.IsActive
	if req.IsActive != nil {
		if !*req.IsActive && s.isCaller(ctx, id) {
			return nil, ErrSelfDeactivation
		}
		u.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	if wasActive && !u.IsActive {
		if err := s.revokeUser(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*User, error) {
	active := true
	return s.UpdateUser(ctx, id, &UpdateRequest{IsActive: &active})
}

// Deactivate blocks sign-in and revokes the user's outstanding tokens.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*User, error) {
	inactive := false
	return s.UpdateUser(ctx, id, &UpdateRequest{IsActive: &inactive})
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if s.isCaller(ctx, id) {
		return ErrSelfDeactivation
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.revokeUser(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// -- Profile --

func (s *Service) Profile(ctx context.Context) (*User, error) {
	return s.callerUser(ctx)
}

func (s *Service) UpdateProfile(ctx context.Context, req *ProfileRequest) (*User, error) {
	u, err := s.callerUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// -- Directory lookups used by other domains --

// IsActive implements auth.ActiveChecker.
func (s *Service) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.IsActive, nil
}

// UserRole returns the role of a user, or "" when the user does not exist.
func (s *Service) UserRole(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// -- helpers --

func (s *Service) newUser(ctx context.Context, req *RegisterRequest, active bool) (*User, error) {
	if err := auth.CheckPasswordStrength(req.Password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = auth.RolePatient
	}
	u := &User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		CPF:          req.CPF,
		Phone:        req.Phone,
		Role:         role,
		IsActive:     active,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) signIn(u *User) (*AuthResponse, error) {
	pair, err := s.tokens.IssuePair(u.Identity())
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: u, Tokens: pair}, nil
}

func (s *Service) callerUser(ctx context.Context) (*User, error) {
	caller, ok := auth.UserUUIDFromContext(ctx)
	if !ok {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, caller)
}

func (s *Service) isCaller(ctx context.Context, id uuid.UUID) bool {
	caller, ok := auth.UserUUIDFromContext(ctx)
	return ok && caller == id
}

func (s *Service) revoke(ctx context.Context, claims *auth.Claims) error {
	if s.revoked == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// revokeUser cuts off every token issued to id up to now.
func (s *Service) revokeUser(ctx context.Context, id uuid.UUID) error {
	return s.revokeUserAt(ctx, id, s.now())
}

// revokeUserAt cuts off every token issued to id up to and including the
// whole second of at. The cutoff lives as long as the longest token could.
func (s *Service) revokeUserAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.revoked == nil {
		return nil
	}
	return s.revoked.RevokeUser(ctx, id.String(), at, s.tokens.RefreshTTL())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
