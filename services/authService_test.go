package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"PathLab/apperrors"
	"PathLab/cache"
	"PathLab/models"
	"PathLab/repositories"
	"PathLab/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[int64]models.User
	roles       map[models.SystemRole]models.Role
	customRoles *fakeCustomRoleRepo
	evicted     []string
	nextID      int64
}

func newFakeUserRepo(customRoles *fakeCustomRoleRepo) *fakeUserRepo {
	r := &fakeUserRepo{
		users:       map[int64]models.User{},
		roles:       map[models.SystemRole]models.Role{},
		customRoles: customRoles,
	}
	for i, name := range models.SystemRoles {
		r.roles[name] = models.Role{ID: int64(i + 1), Name: name}
	}
	return r
}

func (r *fakeUserRepo) withRole(u models.User) *models.User {
	if u.RoleID != nil {
		for _, role := range r.roles {
			if role.ID == *u.RoleID {
				role := role
				u.Role = &role
			}
		}
	}
	return &u
}

func (r *fakeUserRepo) find(match func(models.User) bool) *models.User {
	for _, u := range r.users {
		if match(u) {
			return r.withRole(u)
		}
	}
	return nil
}

func (r *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u models.User) bool { return u.Email == email }) != nil, nil
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u models.User) bool { return u.Username == username }), nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u models.User) bool { return u.Email == email }), nil
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(func(u models.User) bool { return u.Username == user.Username }) != nil {
		return repositories.ErrDuplicate
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetUserForLogin(ctx context.Context, email string) (*models.User, error) {
	return r.GetUserByEmail(ctx, email)
}

func (r *fakeUserRepo) GetRoleByName(_ context.Context, name models.SystemRole) (*models.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func (r *fakeUserRepo) UpdateUserEmail(_ context.Context, userID int64, newEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.Email = newEmail
	r.users[userID] = u
	return nil
}

func (r *fakeUserRepo) UpdateUserPassword(_ context.Context, userID int64, hashedPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.Password = hashedPassword
	r.users[userID] = u
	return nil
}

func (r *fakeUserRepo) GetAllUsers(_ context.Context, labID string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if labID == "" || u.Lab() == labID {
			out = append(out, *r.withRole(u))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) DeleteUserCache(_ context.Context, identifiers ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, identifiers...)
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, userID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	return r.withRole(u), nil
}

func (r *fakeUserRepo) UpdateUserProfile(_ context.Context, userID int64, username, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.Username, u.Email = username, email
	r.users[userID] = u
	return nil
}

func (r *fakeUserRepo) GetUserPermissions(ctx context.Context, user *models.User) ([]string, error) {
	if user.CustomRoleID != nil {
		role, err := r.customRoles.GetByID(ctx, user.Lab(), *user.CustomRoleID)
		if err != nil || role == nil {
			return nil, err
		}
		return role.Permissions, nil
	}
	if user.HasSystemRole(models.RoleSuperAdmin) {
		return []string{models.PermManageLabs}, nil
	}
	return []string{models.PermManageBookings}, nil
}

func (r *fakeUserRepo) DeleteUser(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	return nil
}

type fakeCustomRoleRepo struct {
	mu    sync.Mutex
	roles map[int64]models.CustomRole
}

func newFakeCustomRoleRepo() *fakeCustomRoleRepo {
	return &fakeCustomRoleRepo{roles: map[int64]models.CustomRole{}}
}

func (r *fakeCustomRoleRepo) Create(_ context.Context, role *models.CustomRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.LabID == role.LabID && existing.Name.Normalized() == role.Name.Normalized() {
			return repositories.ErrDuplicate
		}
	}
	role.ID = int64(len(r.roles) + 1)
	r.roles[role.ID] = *role
	return nil
}

func (r *fakeCustomRoleRepo) GetByID(_ context.Context, labID string, id int64) (*models.CustomRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok || role.LabID != labID {
		return nil, nil
	}
	return &role, nil
}

func (r *fakeCustomRoleRepo) List(_ context.Context, labID string, includeInactive bool) ([]models.CustomRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CustomRole
	for _, role := range r.roles {
		if role.LabID == labID && (includeInactive || role.IsActive) {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *fakeCustomRoleRepo) Deactivate(_ context.Context, labID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role := r.roles[id]
	role.IsActive = false
	r.roles[id] = role
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	codes   map[string]string
	invites []string
}

func (n *recordingNotifier) SendResetCode(email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[email] = code
	return nil
}

func (n *recordingNotifier) SendInviteAsync(email, username, lab string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, email+"|"+lab)
}

const goodPassword = "Str0ng!Pass"

type userFixture struct {
	*fixture
	users    *fakeUserRepo
	roles    *fakeCustomRoleRepo
	notifier *recordingNotifier
	service  UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := newFixture(t)
	c, err := cache.NewCache(f.client, zap.NewNop())
	require.NoError(t, err)

	roles := newFakeCustomRoleRepo()
	uf := &userFixture{
		fixture:  f,
		users:    newFakeUserRepo(roles),
		roles:    roles,
		notifier: &recordingNotifier{},
	}
	uf.service = NewUserService(uf.users, roles, f.labs, f.locker, uf.notifier, utils.NewResetCodes(c), zap.NewNop())
	return uf
}

func TestCreateUserScopedToLab(t *testing.T) {
	uf := newUserFixture(t)
	ctx := context.Background()

	user, err := uf.service.CreateUser(ctx, NewUserInput{
		Username: "frontdesk",
		Email:    "Desk@City.example",
		Password: goodPassword,
		Role:     string(models.RoleAdmin),
	}, labHead)
	require.NoError(t, err)
	assert.Equal(t, testLab, user.Lab())
	assert.Equal(t, "desk@city.example", user.Email)
	assert.NotEqual(t, goodPassword, uf.users.users[user.ID].Password)
	assert.Equal(t, []string{"desk@city.example|City Diagnostics"}, uf.notifier.invites)

	tests := []struct {
		name  string
		input NewUserInput
		actor Actor
		kind  apperrors.Kind
	}{
		{"other lab", NewUserInput{Username: "other", Email: "o@x.example", Password: goodPassword, Role: string(models.RoleAdmin), LabID: "lab-2"}, labHead, apperrors.KindForbidden},
		{"grant lab admin", NewUserInput{Username: "boss", Email: "b@x.example", Password: goodPassword, Role: string(models.RoleLabAdmin)}, labHead, apperrors.KindForbidden},
		{"admin cannot create", NewUserInput{Username: "newbie", Email: "n@x.example", Password: goodPassword, Role: string(models.RoleAdmin)}, cashier, apperrors.KindForbidden},
		{"email taken", NewUserInput{Username: "again", Email: "desk@city.example", Password: goodPassword, Role: string(models.RoleAdmin)}, labHead, apperrors.KindConflict},
		{"weak password", NewUserInput{Username: "weak", Email: "w@x.example", Password: "password", Role: string(models.RoleAdmin)}, labHead, apperrors.KindValidation},
		{"no role", NewUserInput{Username: "norole", Email: "r@x.example", Password: goodPassword}, labHead, apperrors.KindValidation},
		{"unknown lab", NewUserInput{Username: "lost", Email: "l@x.example", Password: goodPassword, Role: string(models.RoleAdmin), LabID: "nowhere"}, super, apperrors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uf.service.CreateUser(ctx, tt.input, tt.actor)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestCreateUserWithCustomRole(t *testing.T) {
	uf := newUserFixture(t)
	ctx := context.Background()
	roleService := NewRoleService(uf.roles)

	role, err := roleService.Create(ctx, testLab, "Front  Desk", []string{models.PermRecordPayments, models.PermManageBookings, models.PermRecordPayments})
	require.NoError(t, err)
	assert.Equal(t, models.CustomRoleName("Front Desk"), role.Name)
	assert.Equal(t, []string{models.PermManageBookings, models.PermRecordPayments}, []string(role.Permissions))

	user, err := uf.service.CreateUser(ctx, NewUserInput{
		Username:     "desk",
		Email:        "desk@city.example",
		Password:     goodPassword,
		CustomRoleID: &role.ID,
	}, labHead)
	require.NoError(t, err)

	perms, err := uf.service.GetUserPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, perms, models.PermRecordPayments)

	require.NoError(t, roleService.Deactivate(ctx, testLab, role.ID))
	_, err = uf.service.CreateUser(ctx, NewUserInput{
		Username:     "desk2",
		Email:        "desk2@city.example",
		Password:     goodPassword,
		CustomRoleID: &role.ID,
	}, labHead)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRoleServiceValidation(t *testing.T) {
	uf := newUserFixture(t)
	ctx := context.Background()
	roleService := NewRoleService(uf.roles)

	_, err := roleService.Create(ctx, testLab, "Phlebotomist", []string{"launch_rockets"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = roleService.Create(ctx, testLab, "Phlebotomist", []string{models.PermManageLabs})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = roleService.Create(ctx, testLab, "Admin", nil)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = roleService.Create(ctx, testLab, "Billing Lead", []string{models.PermRecordPayments, models.PermAllowEdit})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Contains(t, apperrors.PublicMessage(err), "reserved for system roles")

	_, err = roleService.Create(ctx, testLab, "Phlebotomist", []string{models.PermViewReports})
	require.NoError(t, err)
	_, err = roleService.Create(ctx, testLab, "phlebotomist", nil)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestAuthenticateUser(t *testing.T) {
	uf := newUserFixture(t)
	ctx := context.Background()
	_, err := uf.service.CreateUser(ctx, NewUserInput{
		Username: "frontdesk",
		Email:    "desk@city.example",
		Password: goodPassword,
		Role:     string(models.RoleAdmin),
	}, labHead)
	require.NoError(t, err)

	user, err := uf.service.AuthenticateUser(ctx, " DESK@city.example ", goodPassword)
	require.NoError(t, err)
	assert.Empty(t, user.Password)
	assert.Equal(t, string(models.RoleAdmin), user.RoleName())

	_, err = uf.service.AuthenticateUser(ctx, "desk@city.example", "Wr0ng!Pass")
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
	_, err = uf.service.AuthenticateUser(ctx, "nobody@city.example", goodPassword)
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	require.NoError(t, NewLabService(uf.labs, zap.NewNop()).SetActive(ctx, testLab, false, super))
	_, err = uf.service.AuthenticateUser(ctx, "desk@city.example", goodPassword)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestPasswordReset(t *testing.T) {
	uf := newUserFixture(t)
	ctx := context.Background()
	user, err := uf.service.CreateSuperAdmin(ctx, "root", "root@pathlab.example", goodPassword)
	require.NoError(t, err)

	require.NoError(t, uf.service.SendResetCode(ctx, "root@pathlab.example"))
	code := uf.notifier.codes["root@pathlab.example"]
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = uf.service.ResetPassword(ctx, "root@pathlab.example", wrong, "N3w!Password")
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	require.NoError(t, uf.service.ResetPassword(ctx, "root@pathlab.example", code, "N3w!Password"))
	_, err = uf.service.AuthenticateUser(ctx, "root@pathlab.example", "N3w!Password")
	require.NoError(t, err)
	assert.Contains(t, uf.users.evicted, user.Email)

	err = uf.service.ResetPassword(ctx, "root@pathlab.example", code, "An0ther!Pass")
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	err = uf.service.SendResetCode(ctx, "nobody@pathlab.example")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUpdateEmailRequiresPassword(t *testing.T) {
	uf := newUserFixture(t)
	ctx := context.Background()
	user, err := uf.service.CreateSuperAdmin(ctx, "root", "root@pathlab.example", goodPassword)
	require.NoError(t, err)

	err = uf.service.UpdateUserEmail(ctx, user.ID, "Wr0ng!Pass", "new@pathlab.example")
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	require.NoError(t, uf.service.UpdateUserEmail(ctx, user.ID, goodPassword, "New@PathLab.example"))
	got, err := uf.service.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@pathlab.example", got.Email)
	assert.Contains(t, uf.users.evicted, "root@pathlab.example")
}

func TestDeleteUserRules(t *testing.T) {
	uf := newUserFixture(t)
	ctx := context.Background()
	root, err := uf.service.CreateSuperAdmin(ctx, "root", "root@pathlab.example", goodPassword)
	require.NoError(t, err)
	desk, err := uf.service.CreateUser(ctx, NewUserInput{
		Username: "frontdesk",
		Email:    "desk@city.example",
		Password: goodPassword,
		Role:     string(models.RoleAdmin),
	}, labHead)
	require.NoError(t, err)

	self := super
	self.UserID = "1"
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(uf.service.DeleteUser(ctx, root.ID, self)))
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(uf.service.DeleteUser(ctx, root.ID, labHead)))

	require.NoError(t, uf.service.DeleteUser(ctx, desk.ID, labHead))
	_, err = uf.service.GetUserByID(ctx, desk.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	users, err := uf.service.GetAllUsers(ctx, super)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, strings.EqualFold(users[0].Username, "root"))
}
