package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"toolbox-portal/app/server/accounts"
	"toolbox-portal/app/server/jwt"
	"toolbox-portal/app/server/middlewares"
	"toolbox-portal/app/server/pages"
	"toolbox-portal/app/server/passwords"
	"toolbox-portal/app/server/permissions"
	"toolbox-portal/app/server/sessions"
	"toolbox-portal/app/server/store/storetest"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const testSecret = "test-signing-secret"

type testEnv struct {
	e   *echo.Echo
	mem *storetest.Memory
	j   *jwt.JWT
}

func newTestEnv(t *testing.T, bootstrap string, lockBootstrap bool) *testEnv {
	t.Helper()

	l := zap.NewNop()
	mem := storetest.NewMemory()

	j, err := jwt.New(testSecret)
	if err != nil {
		t.Fatalf("jwt.New: %v", err)
	}
	renderer, err := pages.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	app := NewApp(l, accounts.NewService(l, mem, nil, bootstrap), permissions.NewResolver(mem), j, lockBootstrap)

	e := echo.New()
	e.Renderer = renderer
	app.RegisterHandlers(e, middlewares.TokenAuth(j, sessions.NewRevoker(nil, l), l))

	return &testEnv{e: e, mem: mem, j: j}
}

func (env *testEnv) putUser(t *testing.T, username, password string, isAdmin any) {
	t.Helper()
	hash, err := passwords.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	env.mem.PutUser(username, hash, isAdmin)
}

func (env *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	token, err := env.j.Issue(username)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectMsg(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if got := decode(t, rec)["msg"]; got != msg {
		t.Fatalf("msg = %v, want %q", got, msg)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "alice", "pw", false)

	rec := env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res LoginToken
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Redirect != "/dashboard" {
		t.Errorf("redirect = %q", res.Redirect)
	}
	identity, err := env.j.Verify(res.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.Username != "alice" {
		t.Errorf("subject = %q, want alice", identity.Username)
	}

	// 令牌可以直接访问 API
	rec = env.do(t, http.MethodGet, "/api/dashboard-data", res.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard-data status = %d", rec.Code)
	}
	data := decode(t, rec)
	if data["user"] != "alice" || data["authenticated"] != true || data["is_admin"] != false {
		t.Errorf("dashboard-data = %v", data)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "alice", "pw", false)

	for _, body := range []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "ghost", "password": "pw"},
		{"username": "alice"},
		{},
	} {
		rec := env.do(t, http.MethodPost, "/login", "", body)
		expectMsg(t, rec, http.StatusUnauthorized, "Bad username or password")
		if strings.Contains(rec.Body.String(), "access_token") {
			t.Errorf("token issued for %v", body)
		}
	}
}

func TestTokenAuth_Rejections(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "alice", "pw", false)

	expired, err := env.j.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	foreign, err := jwt.New("another-secret")
	if err != nil {
		t.Fatalf("jwt.New: %v", err)
	}
	foreignToken, err := foreign.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name  string
		token string
		msg   string
	}{
		{"missing", "", "Missing Authorization Header"},
		{"expired", expired, "Token has expired"},
		{"garbage", "not-a-token", "Invalid token"},
		{"foreign key", foreignToken, "Invalid token"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			before := env.mem.Calls()
			rec := env.do(t, http.MethodGet, "/api/check-auth", c.token, nil)
			expectMsg(t, rec, http.StatusUnauthorized, c.msg)
			if after := env.mem.Calls(); after != before {
				t.Errorf("store touched %d times before rejection", after-before)
			}
		})
	}
}

func TestCheckAuth(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "admin", "root", true)
	env.putUser(t, "bob", "pw", "true")
	env.putUser(t, "carol", "pw", 0)
	env.mem.PutPermissions("carol", map[string]any{"whisper_ai": false, "snake_game": nil})

	// 管理员的 permissions 为空对象
	rec := env.do(t, http.MethodGet, "/api/check-auth", env.token(t, "admin"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	res := decode(t, rec)
	if res["is_admin"] != true || res["status"] != "success" || res["authenticated"] != true {
		t.Errorf("admin check-auth = %v", res)
	}
	if perms, ok := res["permissions"].(map[string]any); !ok || len(perms) != 0 {
		t.Errorf("admin permissions = %v, want {}", res["permissions"])
	}

	// 文本形式的 is_admin
	res = decode(t, env.do(t, http.MethodGet, "/api/check-auth", env.token(t, "bob"), nil))
	if res["is_admin"] != true {
		t.Errorf("bob is_admin = %v, want true", res["is_admin"])
	}

	rec = env.do(t, http.MethodGet, "/api/check-auth", env.token(t, "carol"), nil)
	res = decode(t, rec)
	if res["is_admin"] != false {
		t.Errorf("carol is_admin = %v", res["is_admin"])
	}
	perms, _ := res["permissions"].(map[string]any)
	if perms["whisper-ai"] != false || perms["snake-game"] != true || perms["translator"] != true {
		t.Errorf("carol permissions = %v", perms)
	}
}

func TestCheckAuth_StoreError(t *testing.T) {
	env := newTestEnv(t, "", false)
	token := env.token(t, "alice")
	env.mem.Err = errors.New("connection refused")

	rec := env.do(t, http.MethodGet, "/api/check-auth", token, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	res := decode(t, rec)
	if res["status"] != "error" || res["msg"] != "Error checking authorization" {
		t.Errorf("body = %v", res)
	}
}

func TestAdminEndpoints_RequireAdmin(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "admin", "root", true)
	env.putUser(t, "bob", "pw", false)
	env.putUser(t, "carol", "pw", false)

	requests := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/users", nil},
		{http.MethodPost, "/api/users", map[string]any{"username": "dave", "password": "pw"}},
		{http.MethodPut, "/api/users/carol/password", map[string]any{"password": "new"}},
		{http.MethodGet, "/api/users/carol/permissions", nil},
		{http.MethodPut, "/api/users/carol/permissions", map[string]any{"translator": false}},
		{http.MethodDelete, "/api/users/carol", nil},
	}

	bob := env.token(t, "bob")
	for _, r := range requests {
		rec := env.do(t, r.method, r.path, bob, r.body)
		expectMsg(t, rec, http.StatusForbidden, "Unauthorized")
	}
	// 请求体无效时同样先返回 403
	for _, path := range []string{"/api/users", "/api/users/carol/password", "/api/users/carol/permissions"} {
		method := http.MethodPut
		if path == "/api/users" {
			method = http.MethodPost
		}
		req := httptest.NewRequest(method, path, strings.NewReader("[1]"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bob)
		rec := httptest.NewRecorder()
		env.e.ServeHTTP(rec, req)
		expectMsg(t, rec, http.StatusForbidden, "Unauthorized")
	}

	if !env.mem.HasUser("carol") || env.mem.HasUser("dave") || env.mem.Permissions("carol") != nil {
		t.Fatal("non-admin request changed the store")
	}

	admin := env.token(t, "admin")
	for _, r := range requests {
		rec := env.do(t, r.method, r.path, admin, r.body)
		if rec.Code == http.StatusForbidden || rec.Code >= http.StatusInternalServerError {
			t.Errorf("%s %s as admin: status %d, body %s", r.method, r.path, rec.Code, rec.Body.String())
		}
	}
	if env.mem.HasUser("carol") || !env.mem.HasUser("dave") {
		t.Error("admin requests not applied")
	}
}

func TestUserCRUD(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "admin", "root", true)
	admin := env.token(t, "admin")

	rec := env.do(t, http.MethodPost, "/api/users", admin, map[string]any{"username": "dave", "password": "pw", "is_admin": "false"})
	expectMsg(t, rec, http.StatusCreated, "User created successfully")

	rec = env.do(t, http.MethodPost, "/api/users", admin, map[string]any{"username": "dave", "password": "x"})
	expectMsg(t, rec, http.StatusBadRequest, "Username already exists")

	rec = env.do(t, http.MethodPost, "/api/users", admin, map[string]any{"username": "erin"})
	expectMsg(t, rec, http.StatusBadRequest, "Missing username or password")

	rec = env.do(t, http.MethodGet, "/api/users", admin, nil)
	var list []UserInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 || list[0] != (UserInfo{Username: "admin", IsAdmin: true}) || list[1] != (UserInfo{Username: "dave", IsAdmin: false}) {
		t.Errorf("users = %+v", list)
	}

	old := env.mem.Password("dave")
	rec = env.do(t, http.MethodPut, "/api/users/dave/password", admin, map[string]any{"password": "new"})
	expectMsg(t, rec, http.StatusOK, "Password updated successfully")
	if env.mem.Password("dave") == old {
		t.Error("password hash not changed")
	}
	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "dave", "password": "new"})
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password: %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/users/dave/password", admin, map[string]any{})
	expectMsg(t, rec, http.StatusBadRequest, "Missing new password")

	rec = env.do(t, http.MethodPut, "/api/users/ghost/password", admin, map[string]any{"password": "x"})
	expectMsg(t, rec, http.StatusNotFound, "User not found")

	rec = env.do(t, http.MethodDelete, "/api/users/dave", admin, nil)
	expectMsg(t, rec, http.StatusOK, "User deleted successfully")

	rec = env.do(t, http.MethodDelete, "/api/users/dave", admin, nil)
	expectMsg(t, rec, http.StatusNotFound, "User not found")
}

func TestUserDelete_ReservedAdmin(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "admin", "root", true)

	rec := env.do(t, http.MethodDelete, "/api/users/admin", env.token(t, "admin"), nil)
	expectMsg(t, rec, http.StatusBadRequest, "Cannot delete admin user")
	if !env.mem.HasUser("admin") {
		t.Fatal("admin deleted")
	}
}

func TestPermissions(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "admin", "root", true)
	env.putUser(t, "bob", "pw", false)
	admin := env.token(t, "admin")

	// 没有记录时全部允许
	rec := env.do(t, http.MethodGet, "/api/users/bob/permissions", admin, nil)
	perms := decode(t, rec)
	if len(perms) != len(permissions.DefaultModules) {
		t.Fatalf("permissions = %v", perms)
	}
	for _, m := range permissions.DefaultModules {
		if perms[m] != true {
			t.Errorf("%s = %v, want true", m, perms[m])
		}
	}

	rec = env.do(t, http.MethodPut, "/api/users/bob/permissions", admin, map[string]any{"youtube-downloader": false, "notes": "x"})
	expectMsg(t, rec, http.StatusOK, "Permissions updated successfully")

	row := env.mem.Permissions("bob")
	if row["youtube_downloader"] != false {
		t.Errorf("youtube_downloader = %v", row["youtube_downloader"])
	}
	if _, ok := row["notes"]; ok {
		t.Error("non-boolean field stored")
	}

	res := decode(t, env.do(t, http.MethodGet, "/api/check-auth", env.token(t, "bob"), nil))
	got, _ := res["permissions"].(map[string]any)
	if got["youtube-downloader"] != false || got["whisper-ai"] != true {
		t.Errorf("bob permissions = %v", got)
	}

	rec = env.do(t, http.MethodPut, "/api/users/ghost/permissions", admin, map[string]any{"translator": true})
	expectMsg(t, rec, http.StatusNotFound, "User not found")

	rec = env.do(t, http.MethodPut, "/api/users/bob/permissions", admin, map[string]any{"Bad Module": true})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid module id: status %d", rec.Code)
	}
}

func TestCreateAdmin(t *testing.T) {
	env := newTestEnv(t, "bootstrap-pw", false)

	rec := env.do(t, http.MethodPost, "/create-admin", "", nil)
	expectMsg(t, rec, http.StatusCreated, "Admin user created successfully")

	rec = env.do(t, http.MethodPost, "/create-admin", "", nil)
	expectMsg(t, rec, http.StatusBadRequest, "Admin already exists")

	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "bootstrap-pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login status = %d", rec.Code)
	}
}

func TestCreateAdmin_PasswordNotConfigured(t *testing.T) {
	env := newTestEnv(t, "", false)

	rec := env.do(t, http.MethodPost, "/create-admin", "", nil)
	expectMsg(t, rec, http.StatusInternalServerError, "Admin password not configured")
	if env.mem.HasUser("admin") {
		t.Fatal("admin created without password")
	}
}

func TestDeleteAdmin(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "admin", "root", true)
	env.mem.PutPermissions("admin", map[string]any{"translator": true})

	rec := env.do(t, http.MethodPost, "/delete-admin", "", nil)
	expectMsg(t, rec, http.StatusOK, "Admin user deleted successfully")
	if env.mem.HasUser("admin") || env.mem.Permissions("admin") != nil {
		t.Fatal("admin still present")
	}
}

func TestBootstrapLocked(t *testing.T) {
	env := newTestEnv(t, "bootstrap-pw", true)
	env.putUser(t, "admin", "root", true)

	for _, path := range []string{"/create-admin", "/delete-admin"} {
		if rec := env.do(t, http.MethodPost, path, "", nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", path, rec.Code)
		}
	}
	if !env.mem.HasUser("admin") {
		t.Fatal("admin deleted while locked")
	}
}

func TestUpdateAdminPassword(t *testing.T) {
	env := newTestEnv(t, "bootstrap-pw", false)
	env.putUser(t, "admin", "old", true)
	env.putUser(t, "root", "pw", true)

	rec := env.do(t, http.MethodPost, "/update-admin-password", "", nil)
	expectMsg(t, rec, http.StatusUnauthorized, "Missing Authorization Header")

	// 其他管理员也不能重置
	rec = env.do(t, http.MethodPost, "/update-admin-password", env.token(t, "root"), nil)
	expectMsg(t, rec, http.StatusForbidden, "Unauthorized")

	rec = env.do(t, http.MethodPost, "/update-admin-password", env.token(t, "admin"), nil)
	expectMsg(t, rec, http.StatusOK, "Admin password updated successfully")

	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{"username": "admin", "password": "bootstrap-pw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with bootstrap password: %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, "", false)

	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	env.mem.Err = errors.New("down")
	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPages(t *testing.T) {
	env := newTestEnv(t, "", false)

	for _, path := range []string{"/", "/dashboard", "/users"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
			t.Errorf("%s: content type %q", path, rec.Header().Get(echo.HeaderContentType))
		}
	}

	// 贪吃蛇页面需要令牌
	rec := env.do(t, http.MethodGet, "/snake-game", "", nil)
	expectMsg(t, rec, http.StatusUnauthorized, "Missing Authorization Header")

	rec = env.do(t, http.MethodGet, "/snake-game", env.token(t, "alice"), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<canvas") {
		t.Fatalf("snake-game: status %d", rec.Code)
	}
}

func TestUserList_Pagination(t *testing.T) {
	env := newTestEnv(t, "", false)
	env.putUser(t, "admin", "root", true)
	for _, name := range []string{"bob", "carol", "dave"} {
		env.mem.PutUser(name, "hash", false)
	}
	admin := env.token(t, "admin")

	cases := []struct {
		query   string
		want    []string
		pageMax string
	}{
		{"", []string{"admin", "bob", "carol", "dave"}, "1"},
		{"?page=0&limit=0", []string{"admin", "bob", "carol", "dave"}, "1"},
		{"?page=2&limit=3", []string{"dave"}, "2"},
		{"?page=1&limit=2", []string{"admin", "bob"}, "2"},
		{"?page=5&limit=2", []string{}, "2"},
		// 过大的 limit 按上限处理
		{"?page=1&limit=18446744073709551615", []string{"admin", "bob", "carol", "dave"}, "1"},
		{"?page=18446744073709551615&limit=2", []string{}, "2"},
		{"?page=9223372036854775807&limit=18446744073709551615", []string{}, "1"},
	}

	for _, c := range cases {
		rec := env.do(t, http.MethodGet, "/api/users"+c.query, admin, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", c.query, rec.Code)
		}
		var list []UserInfo
		if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
			t.Fatalf("%s: decode: %v", c.query, err)
		}
		names := make([]string, 0, len(list))
		for _, u := range list {
			names = append(names, u.Username)
		}
		if strings.Join(names, ",") != strings.Join(c.want, ",") {
			t.Errorf("%s: users = %v, want %v", c.query, names, c.want)
		}
		if got := rec.Header().Get(headerPageMax); got != c.pageMax {
			t.Errorf("%s: %s = %q, want %q", c.query, headerPageMax, got, c.pageMax)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/users?page=abc", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid page: status %d", rec.Code)
	}
}
