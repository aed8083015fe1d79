package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/params"
)

type stubTxManager struct{}

func (stubTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	users  map[int]*User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *User) error {
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID int) (*User, error) {
	if u, ok := r.users[userID]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *User) error {
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _ UserFilter) ([]User, int64, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, username string) (bool, error) {
	u, _ := r.GetByUsername(ctx, username)
	return u != nil, nil
}

func (r *fakeUserRepo) LoadRoles(_ context.Context, _ int) ([]Role, error) { return nil, nil }

func (r *fakeUserRepo) ReplaceRoles(_ context.Context, _ int, _ []int) error { return nil }

type fakeRoleRepo struct {
	accesses []Access
	grants   map[[3]int]bool
}

func (r *fakeRoleRepo) GetByID(_ context.Context, _ int) (*Role, error) { return nil, nil }
func (r *fakeRoleRepo) List(_ context.Context) ([]Role, error)          { return nil, nil }

func (r *fakeRoleRepo) ListUserAccesses(_ context.Context, _ int) ([]Access, error) {
	return r.accesses, nil
}

func (r *fakeRoleRepo) HasGrant(_ context.Context, userID, accessID, operationID int) (bool, error) {
	return r.grants[[3]int{userID, accessID, operationID}], nil
}

func (r *fakeRoleRepo) ListAccesses(_ context.Context) ([]Access, error)     { return nil, nil }
func (r *fakeRoleRepo) ListOperations(_ context.Context) ([]Operation, error) { return nil, nil }

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *Session) error {
	clone := *s
	r.sessions[s.ID] = &clone
	return nil
}

func (r *fakeSessionRepo) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	if s, ok := r.sessions[id]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeSessionRepo) Expire(_ context.Context, id uuid.UUID) error {
	if s, ok := r.sessions[id]; ok {
		s.NotAfter = time.Now()
	}
	return nil
}

type fakeTokenRepo struct {
	tokens map[int]*AuthToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[int]*AuthToken)}
}

func (r *fakeTokenRepo) Save(_ context.Context, t *AuthToken) error {
	clone := *t
	r.tokens[t.UserID] = &clone
	return nil
}

func (r *fakeTokenRepo) GetByUser(_ context.Context, userID int) (*AuthToken, error) {
	if t, ok := r.tokens[userID]; ok {
		clone := *t
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeTokenRepo) DeleteByUser(_ context.Context, userID int) error {
	delete(r.tokens, userID)
	return nil
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

type fakeParamsRepo struct {
	parameters []params.Parameter
}

func (r *fakeParamsRepo) GetByID(_ context.Context, id int) (*params.Parameter, error) {
	for _, p := range r.parameters {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeParamsRepo) ListByCategory(_ context.Context, categoryID int, onlyActive bool) ([]params.Parameter, error) {
	var out []params.Parameter
	for _, p := range r.parameters {
		if p.CategoryID == categoryID && (!onlyActive || p.IsActive) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeParamsRepo) ListCategories(_ context.Context) ([]params.ParameterCategory, error) {
	return nil, nil
}

func (r *fakeParamsRepo) Save(_ context.Context, _ *params.Parameter) error { return nil }

type authFixture struct {
	service  *Service
	users    *fakeUserRepo
	roles    *fakeRoleRepo
	sessions *fakeSessionRepo
	tokens   *fakeTokenRepo
	mailer   *fakeMailer
}

func newAuthFixture(t *testing.T, policyParams ...params.Parameter) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    newFakeUserRepo(),
		roles:    &fakeRoleRepo{grants: make(map[[3]int]bool)},
		sessions: newFakeSessionRepo(),
		tokens:   newFakeTokenRepo(),
		mailer:   &fakeMailer{},
	}
	loader := params.NewLoader(params.NewService(&fakeParamsRepo{parameters: policyParams}))
	f.service = NewService(f.users, f.roles, f.sessions, f.tokens, stubTxManager{},
		testJWTService(), f.mailer, loader)
	return f
}

func (f *authFixture) seedUser(t *testing.T, username, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  "Test User",
		Email:        username + "@mecsa.pe",
		IsActive:     true,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestSendTokenStoresOTPAndMails(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "alice", "secret")
	ctx := context.Background()

	err := f.service.SendToken(ctx, Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	otp, err := f.tokens.GetByUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, otp)
	assert.Len(t, otp.Token, 6)
	assert.Equal(t, []string{"alice@mecsa.pe"}, f.mailer.sent)
}

func TestSendTokenRejectsWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "alice", "secret")

	err := f.service.SendToken(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.Empty(t, f.mailer.sent)
}

func TestLoginConsumesOTP(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "alice", "secret")
	ctx := context.Background()

	require.NoError(t, f.service.SendToken(ctx, Credentials{Username: "alice", Password: "secret"}))
	otp, _ := f.tokens.GetByUser(ctx, user.ID)

	form := LoginForm{Username: "alice", Password: "secret", Token: otp.Token, IP: "10.0.0.1"}
	pair, loggedIn, err := f.service.Login(ctx, form)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, user.ID, loggedIn.ID)
	require.Len(t, f.sessions.sessions, 1)

	// The OTP is single use: replaying the same login fails.
	_, _, err = f.service.Login(ctx, form)
	require.Error(t, err)
}

func TestLoginRejectsWrongOTP(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "alice", "secret")
	ctx := context.Background()

	require.NoError(t, f.service.SendToken(ctx, Credentials{Username: "alice", Password: "secret"}))

	_, _, err := f.service.Login(ctx, LoginForm{Username: "alice", Password: "secret", Token: "000000"})
	require.Error(t, err)
}

func TestLoginRejectsExpiredOTP(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "alice", "secret")
	ctx := context.Background()

	require.NoError(t, f.tokens.Save(ctx, &AuthToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "123456",
		ExpiresAt: time.Now().Add(-time.Second),
	}))

	_, _, err := f.service.Login(ctx, LoginForm{Username: "alice", Password: "secret", Token: "123456"})
	require.Error(t, err)
}

func TestSessionUsableBoundary(t *testing.T) {
	now := time.Now()
	s := &Session{NotBefore: now.Add(-time.Hour), NotAfter: now}

	// The not_after instant itself is outside the window.
	assert.False(t, s.Usable(now))
	assert.True(t, s.Usable(now.Add(-time.Nanosecond)))
	assert.False(t, s.Usable(now.Add(time.Nanosecond)))
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	f.roles.accesses = []Access{
		{ID: 2, Name: "hilados", IsActive: true},
		{ID: 9, Name: "tejidos", IsActive: true},
	}
	user := f.seedUser(t, "alice", "secret")
	ctx := context.Background()

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(time.Hour),
	}
	require.NoError(t, f.sessions.Create(ctx, session))

	refresh, _, err := testJWTService().GenerateRefreshToken(user.ID, "alice", session.ID)
	require.NoError(t, err)

	access, expiresAt, err := f.service.Refresh(ctx, refresh)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := testJWTService().ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, []string{"hilados", "tejidos"}, claims.Accesses)
}

func TestRefreshRejectsClosedSession(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "alice", "secret")
	ctx := context.Background()

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		NotBefore: time.Now().Add(-9 * time.Hour),
		NotAfter:  time.Now(),
	}
	require.NoError(t, f.sessions.Create(ctx, session))

	refresh, _, err := testJWTService().GenerateRefreshToken(user.ID, "alice", session.ID)
	require.NoError(t, err)

	_, _, err = f.service.Refresh(ctx, refresh)
	require.Error(t, err)
}

func TestLogoutClosesSession(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "alice", "secret")
	ctx := context.Background()

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(time.Hour),
	}
	require.NoError(t, f.sessions.Create(ctx, session))

	refresh, _, err := testJWTService().GenerateRefreshToken(user.ID, "alice", session.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Logout(ctx, refresh))

	stored, _ := f.sessions.Get(ctx, session.ID)
	assert.False(t, stored.Usable(time.Now().Add(time.Second)))
}

func TestCheckPermission(t *testing.T) {
	f := newAuthFixture(t)
	f.roles.grants[[3]int{7, 1, 101}] = true
	ctx := context.Background()

	assert.NoError(t, f.service.CheckPermission(ctx, 7, 1, 101))
	assert.Error(t, f.service.CheckPermission(ctx, 7, 1, 102))
	assert.Error(t, f.service.CheckPermission(ctx, 8, 1, 101))
}

func TestValidatePasswordPolicy(t *testing.T) {
	f := newAuthFixture(t,
		params.Parameter{ID: 600, CategoryID: params.CategoryPasswordPolicy,
			Value: "10", DataType: params.TypeInt, IsActive: true},
		params.Parameter{ID: 601, CategoryID: params.CategoryPasswordPolicy,
			Value: "uppercase, digit, symbol", DataType: params.TypeListString, IsActive: true},
	)
	ctx := context.Background()

	assert.Error(t, f.service.ValidatePassword(ctx, "Short1!"))
	assert.Error(t, f.service.ValidatePassword(ctx, "alllowercase1!"))
	assert.Error(t, f.service.ValidatePassword(ctx, "NoDigitsHere!"))
	assert.Error(t, f.service.ValidatePassword(ctx, "NoSymbols123"))
	assert.NoError(t, f.service.ValidatePassword(ctx, "GoodPass123!"))
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "alice", "secret")

	_, err := f.service.CreateUser(context.Background(), CreateUserForm{
		Username: "alice",
		Password: "GoodPass123!",
	})
	require.Error(t, err)
}

func TestCreateUserRecordsAuditChange(t *testing.T) {
	f := newAuthFixture(t)
	ctx, rec := audit.WithRecorder(context.Background())

	user, err := f.service.CreateUser(ctx, CreateUserForm{
		Username: "bob",
		Password: "GoodPass123!",
		Email:    "bob@mecsa.pe",
	})
	require.NoError(t, err)

	changes := rec.Drain()
	require.Len(t, changes, 1)
	assert.Equal(t, "user", changes[0].EntityType)
	assert.Equal(t, strconv.Itoa(user.ID), changes[0].EntityID)
	assert.Equal(t, audit.ActionCreate, changes[0].Action)
	assert.Equal(t, "bob", changes[0].NewValue["username"])
	assert.NotContains(t, changes[0].NewValue, "password")
}
