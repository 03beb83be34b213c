// Package storetest provides an in-memory replacement for the Postgres store.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"
	"toolbox-portal/app/server/constants"
	"toolbox-portal/app/server/models"
	"toolbox-portal/app/server/store"
)

type memUser struct {
	id        uint
	password  string
	isAdmin   any
	createdAt time.Time
}

// Memory mirrors store.DB semantics. Err, when set, is returned by every call.
type Memory struct {
	mu          sync.Mutex
	nextID      uint
	users       map[string]*memUser
	permissions map[string]map[string]any
	calls       int

	Err error
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*memUser),
		permissions: make(map[string]map[string]any),
	}
}

// PutUser stores a user with a raw is_admin value, so text and numeric flags can be simulated.
func (m *Memory) PutUser(username, passwordHash string, isAdmin any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.users[username] = &memUser{id: m.nextID, password: passwordHash, isAdmin: isAdmin, createdAt: time.Now()}
}

// PutPermissions stores a raw permission row keyed by storage column names.
// Module columns missing from row are stored as NULL.
func (m *Memory) PutPermissions(username string, row map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.newPermissionRow(username)
	for k, v := range row {
		cp[k] = v
	}
	m.permissions[username] = cp
}

// Permissions returns a copy of the stored row, or nil.
func (m *Memory) Permissions(username string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.permissions[username]
	if !ok {
		return nil
	}
	cp := make(map[string]any, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}

func (m *Memory) Password(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u.password
	}
	return ""
}

func (m *Memory) HasUser(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok
}

// Calls counts store operations made through the store interface.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) begin() (func(), error) {
	m.mu.Lock()
	m.calls++
	if m.Err != nil {
		m.mu.Unlock()
		return nil, m.Err
	}
	return m.mu.Unlock, nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}

func (m *Memory) AdminFlag(_ context.Context, username string) (any, error) {
	done, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	u, ok := m.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u.isAdmin, nil
}

func (m *Memory) UserExists(_ context.Context, username string) (bool, error) {
	done, err := m.begin()
	if err != nil {
		return false, err
	}
	defer done()
	_, ok := m.users[username]
	return ok, nil
}

func (m *Memory) FindUser(_ context.Context, username string) (*models.User, error) {
	done, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	u, ok := m.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	isAdmin, _ := u.isAdmin.(bool)
	return &models.User{
		ID:        u.id,
		Username:  username,
		IsAdmin:   isAdmin,
		Password:  u.password,
		CreatedAt: u.createdAt,
	}, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]store.UserRow, error) {
	done, err := m.begin()
	if err != nil {
		return nil, err
	}
	defer done()
	rows := make([]store.UserRow, 0, len(m.users))
	for username, u := range m.users {
		rows = append(rows, store.UserRow{Username: username, IsAdmin: u.isAdmin})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Username < rows[j].Username })
	return rows, nil
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	done, err := m.begin()
	if err != nil {
		return err
	}
	defer done()
	if _, ok := m.users[user.Username]; ok {
		return store.ErrConflict
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.users[user.Username] = &memUser{id: user.ID, password: user.Password, isAdmin: user.IsAdmin, createdAt: user.CreatedAt}
	return nil
}

func (m *Memory) UpdatePassword(_ context.Context, username string, hash string) error {
	done, err := m.begin()
	if err != nil {
		return err
	}
	defer done()
	u, ok := m.users[username]
	if !ok {
		return store.ErrNotFound
	}
	u.password = hash
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, username string) error {
	if username == constants.AdminUsername {
		return store.ErrReservedAccount
	}
	done, err := m.begin()
	if err != nil {
		return err
	}
	defer done()
	if _, ok := m.users[username]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, username)
	delete(m.permissions, username)
	return nil
}

func (m *Memory) DeleteReservedAdmin(_ context.Context) error {
	done, err := m.begin()
	if err != nil {
		return err
	}
	defer done()
	delete(m.users, constants.AdminUsername)
	delete(m.permissions, constants.AdminUsername)
	return nil
}

func (m *Memory) PermissionRecord(_ context.Context, username string) (map[string]any, bool, error) {
	done, err := m.begin()
	if err != nil {
		return nil, false, err
	}
	defer done()
	row, ok := m.permissions[username]
	if !ok {
		return nil, false, nil
	}
	cp := make(map[string]any, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp, true, nil
}

func (m *Memory) UpsertPermissions(_ context.Context, username string, flags map[string]bool) error {
	done, err := m.begin()
	if err != nil {
		return err
	}
	defer done()
	row, ok := m.permissions[username]
	if !ok {
		row = m.newPermissionRow(username)
		m.permissions[username] = row
	}
	for k, v := range flags {
		row[k] = v
	}
	return nil
}

// newPermissionRow 与数据库中新插入的行一致：所有功能模块列都存在，未设置时为 NULL
func (m *Memory) newPermissionRow(username string) map[string]any {
	row := map[string]any{"id": int64(len(m.permissions) + 1), "username": username}
	for _, column := range models.PermissionModuleColumns {
		row[column] = nil
	}
	return row
}
