package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mecsa/internal/core/apperror"
	"mecsa/internal/core/tx"
	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/params"
	"mecsa/pkg/logger"
)

// Mailer delivers login codes. Implemented by infrastructure/mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Service implements the two-step login, session refresh and the
// permission checks behind the route guards.
type Service struct {
	users    UserRepository
	roles    RoleRepository
	sessions SessionRepository
	tokens   TokenRepository
	txm      tx.Manager
	jwt      *JWTService
	mailer   Mailer
	loader   *params.Loader
}

// NewService creates the auth service.
func NewService(
	users UserRepository,
	roles RoleRepository,
	sessions SessionRepository,
	tokens TokenRepository,
	txm tx.Manager,
	jwtService *JWTService,
	mailer Mailer,
	loader *params.Loader,
) *Service {
	return &Service{
		users:    users,
		roles:    roles,
		sessions: sessions,
		tokens:   tokens,
		txm:      txm,
		jwt:      jwtService,
		mailer:   mailer,
		loader:   loader,
	}
}

// SendToken verifies the credentials and emails a fresh OTP. Any previous
// OTP of the user is invalidated first.
func (s *Service) SendToken(ctx context.Context, creds Credentials) error {
	user, err := s.authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return err
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	token := &AuthToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     code,
		ExpiresAt: time.Now().Add(otpTTL),
		CreatedAt: time.Now(),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("drop previous otp: %w", err)
		}
		return s.tokens.Save(ctx, token)
	})
	if err != nil {
		return err
	}

	subject := "Tu código de acceso MECSA"
	body := fmt.Sprintf("<p>Hola %s,</p><p>Tu código de acceso es <b>%s</b>. Vence en 5 minutos.</p>",
		user.DisplayName, code)
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}

	logger.Info(ctx, "login code sent", "user_id", user.ID)
	return nil
}

// Login consumes the OTP and opens a session, returning both tokens.
func (s *Service) Login(ctx context.Context, form LoginForm) (*TokenPair, *User, error) {
	user, err := s.authenticate(ctx, form.Username, form.Password)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	otp, err := s.tokens.GetByUser(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if otp == nil || otp.Token != form.Token {
		return nil, nil, apperror.NewUnauthorized("invalid login code")
	}
	if otp.Expired(now) {
		return nil, nil, apperror.NewUnauthorized("login code expired")
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		IP:        form.IP,
		NotBefore: now,
		NotAfter:  now.Add(s.jwt.config.RefreshTokenTTL),
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// The OTP is single use.
		if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user, session)
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "session_id", session.ID)
	return pair, user, nil
}

// Refresh validates the refresh token against its session and issues a new
// access token. The session window is strict: a refresh at the exact
// not_after instant is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	_, sessionID, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", time.Time{}, err
	}
	if session == nil || !session.Usable(time.Now()) {
		return "", time.Time{}, apperror.NewForbidden(apperror.CodeSessionInactive,
			"session is no longer active")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return "", time.Time{}, err
	}
	if user == nil {
		return "", time.Time{}, apperror.NewUnauthorized("user not found")
	}
	if err := user.CanLogin(); err != nil {
		return "", time.Time{}, err
	}

	accesses, err := s.roles.ListUserAccesses(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.jwt.GenerateAccessToken(user.ID, user.Username, accessNames(accesses))
}

// Logout closes the session carried by the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	_, sessionID, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	if err := s.sessions.Expire(ctx, sessionID); err != nil {
		return err
	}
	logger.Info(ctx, "session closed", "session_id", sessionID)
	return nil
}

// CheckPermission answers the route guard: does any active role of the user
// grant the operation over the access.
func (s *Service) CheckPermission(ctx context.Context, userID, accessID, operationID int) error {
	ok, err := s.roles.HasGrant(ctx, userID, accessID, operationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewForbidden(apperror.CodeForbidden,
			"operation not granted").
			WithDetail("access_id", accessID).
			WithDetail("operation_id", operationID)
	}
	return nil
}

// userSnapshot flattens the account for the audit trail. The password hash
// never enters the log.
func userSnapshot(u *User) map[string]any {
	return map[string]any{
		"id":             u.ID,
		"username":       u.Username,
		"display_name":   u.DisplayName,
		"email":          u.Email,
		"is_active":      u.IsActive,
		"reset_password": u.ResetPassword,
	}
}

func accessNames(accesses []Access) []string {
	names := make([]string, 0, len(accesses))
	for _, a := range accesses {
		names = append(names, a.Name)
	}
	return names
}

// authenticate resolves the user and verifies state and password.
func (s *Service) authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}
	if err := user.CanLogin(); err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}
	return user, nil
}

// issueTokens builds the token pair for a fresh session.
func (s *Service) issueTokens(ctx context.Context, user *User, session *Session) (*TokenPair, error) {
	accesses, err := s.roles.ListUserAccesses(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := s.jwt.GenerateAccessToken(user.ID, user.Username, accessNames(accesses))
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.jwt.GenerateRefreshToken(user.ID, user.Username, session.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        session.ID,
	}, nil
}

// CreateUser registers a new account after the password policy check.
func (s *Service) CreateUser(ctx context.Context, form CreateUserForm) (*User, error) {
	if form.Username == "" {
		return nil, apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if err := s.ValidatePassword(ctx, form.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, form.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewDuplicate("user", "username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		Username:     form.Username,
		PasswordHash: string(hash),
		DisplayName:  form.DisplayName,
		Email:        form.Email,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if len(form.RoleIDs) > 0 {
			return s.users.ReplaceRoles(ctx, user.ID, form.RoleIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	audit.FromContext(ctx).Created("user", strconv.Itoa(user.ID), userSnapshot(user))

	logger.Info(ctx, "user created", "user_id", user.ID, "username", user.Username)
	return s.GetUser(ctx, user.ID)
}

// UpdateUser patches mutable fields and role membership.
func (s *Service) UpdateUser(ctx context.Context, userID int, form UpdateUserForm) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFound("user", userID)
	}
	old := userSnapshot(user)

	if form.DisplayName != nil {
		user.DisplayName = *form.DisplayName
	}
	if form.Email != nil {
		user.Email = *form.Email
	}
	if form.IsActive != nil {
		user.IsActive = *form.IsActive
	}
	user.UpdatedAt = time.Now()

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		if form.RoleIDs != nil {
			return s.users.ReplaceRoles(ctx, userID, form.RoleIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	audit.FromContext(ctx).Updated("user", strconv.Itoa(userID), old, userSnapshot(user))
	return s.GetUser(ctx, userID)
}

// ResetPassword sets a new password and stamps the reset.
func (s *Service) ResetPassword(ctx context.Context, userID int, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NewNotFound("user", userID)
	}
	if err := s.ValidatePassword(ctx, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	old := userSnapshot(user)
	now := time.Now()
	user.PasswordHash = string(hash)
	user.ResetPassword = false
	user.PasswordResetAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	audit.FromContext(ctx).Updated("user", strconv.Itoa(userID), old, userSnapshot(user))
	return nil
}

// GetUser loads a user with its roles.
func (s *Service) GetUser(ctx context.Context, userID int) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFound("user", userID)
	}
	roles, err := s.users.LoadRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

// ListUsers pages users.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, int64, error) {
	return s.users.List(ctx, filter)
}

// ListRoles lists all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.roles.List(ctx)
}

// ListAccesses lists the guarded resources.
func (s *Service) ListAccesses(ctx context.Context) ([]Access, error) {
	return s.roles.ListAccesses(ctx)
}

// ListOperations lists the grantable verbs.
func (s *Service) ListOperations(ctx context.Context) ([]Operation, error) {
	return s.roles.ListOperations(ctx)
}

// ValidatePassword applies the policy loaded from parameters.
func (s *Service) ValidatePassword(ctx context.Context, password string) error {
	policy, err := s.loader.PasswordPolicy(ctx)
	if err != nil {
		return err
	}

	if len(password) < policy.MinLength {
		return apperror.NewUnprocessable(apperror.CodePasswordPolicy,
			fmt.Sprintf("password must be at least %d characters", policy.MinLength))
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if policy.RequireUppercase && !hasUpper {
		return apperror.NewUnprocessable(apperror.CodePasswordPolicy,
			"password needs an uppercase letter")
	}
	if policy.RequireDigit && !hasDigit {
		return apperror.NewUnprocessable(apperror.CodePasswordPolicy,
			"password needs a digit")
	}
	if policy.RequireSymbol && !hasSymbol {
		return apperror.NewUnprocessable(apperror.CodePasswordPolicy,
			"password needs a symbol")
	}
	return nil
}
