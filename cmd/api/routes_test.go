package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"bondbridge/internal/accounts"
	"bondbridge/internal/auth"
	"bondbridge/internal/chat"
	"bondbridge/internal/config"
	"bondbridge/internal/directory"
	"bondbridge/internal/faultlog"
	"bondbridge/internal/gate"
	"bondbridge/internal/httpapi"
	"bondbridge/internal/policy"
	"bondbridge/internal/session"
	"bondbridge/internal/tokenstore"
	"bondbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const testGateSecret = "gate-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := httpapi.RegisterValidators(); err != nil {
		panic(err)
	}
	m.Run()
}

type countingStore struct {
	tokenstore.Store
	calls atomic.Int32
}

func (s *countingStore) Put(ctx context.Context, id, tok string) error {
	s.calls.Add(1)
	return s.Store.Put(ctx, id, tok)
}

func (s *countingStore) Get(ctx context.Context, id string) (string, bool, error) {
	s.calls.Add(1)
	return s.Store.Get(ctx, id)
}

func (s *countingStore) Clear(ctx context.Context, id string) error {
	s.calls.Add(1)
	return s.Store.Clear(ctx, id)
}

type testAPI struct {
	router *gin.Engine
	store  *countingStore
	dir    *directory.MemoryDirectory
	faults *faultlog.MemoryRepo
	user   directory.Principal
	admin  directory.Principal
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	ctx := context.Background()
	authCfg := config.AuthConfig{
		SigningKey: "0123456789abcdef0123456789abcdef",
		Issuer:     "bondbridge",
		Audience:   "bondbridge-clients",
	}

	codec, err := auth.NewCodec(authCfg)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	issuer, err := auth.NewIssuer(codec, authCfg)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	g, err := gate.New(config.GateConfig{Secret: testGateSecret})
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	policies, err := policy.NewEngine(policy.DefaultPolicies()...)
	if err != nil {
		t.Fatalf("policies: %v", err)
	}

	dir := directory.NewMemoryDirectory()
	for _, r := range []string{policy.RoleAdmin, policy.RoleCommonUser, policy.RoleApp} {
		_ = dir.CreateRole(ctx, r)
	}
	user, _ := dir.CreatePrincipal(ctx, "a@x.com", "p")
	_ = dir.AddRole(ctx, user.ID, policy.RoleCommonUser)
	admin, _ := dir.CreatePrincipal(ctx, "admin@x.com", "root")
	for _, r := range []string{policy.RoleAdmin, policy.RoleCommonUser, policy.RoleApp} {
		_ = dir.AddRole(ctx, admin.ID, r)
	}

	store := &countingStore{Store: tokenstore.NewMemoryStore(0)}
	chatSvc := chat.NewService(chat.NewMemoryRepo())
	sessions, err := session.NewService(dir, issuer, codec, store)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	accts, err := accounts.NewService(dir, chatSvc, store)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	faults := faultlog.NewMemoryRepo()

	r := newRouter(routerDeps{
		Log:      logger.NewWithWriter(&bytes.Buffer{}, "production"),
		Gate:     g,
		Codec:    codec,
		Policies: policies,
		Handlers: httpapi.Handlers{
			Sessions:     sessions,
			Accounts:     accts,
			Chat:         chatSvc,
			Faults:       faultlog.NewService(faults),
			EnsureSchema: func(context.Context) error { return nil },
		},
	})
	r.GET("/boom", func(c *gin.Context) { panic("connection string host=db password=hunter2") })

	return testAPI{router: r, store: store, dir: dir, faults: faults, user: user, admin: admin}
}

func (a testAPI) do(t *testing.T, method, path, bearer string, body any, gateValue *string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if gateValue != nil {
		req.Header.Set(gate.HeaderName, *gateValue)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a testAPI) call(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	secret := testGateSecret
	return a.do(t, method, path, bearer, body, &secret)
}

func (a testAPI) signIn(t *testing.T, email, password string) auth.TokenPair {
	t.Helper()
	w := a.call(t, http.MethodPost, "/signin", "", gin.H{"email": email, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("sign in %s: %d %s", email, w.Code, w.Body.String())
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(w.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	return pair
}

func TestGate_RejectsBeforeAnyStoreAccess(t *testing.T) {
	api := newTestAPI(t)
	wrong := "nope"

	for _, tc := range []struct {
		name  string
		gate  *string
		error string
	}{
		{"missing", nil, "missing gate header"},
		{"wrong", &wrong, "invalid gate header"},
	} {
		w := api.do(t, http.MethodPost, "/signin", "", gin.H{"email": "a@x.com", "password": "p"}, tc.gate)
		if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), tc.error) {
			t.Fatalf("%s: expected 401 %q, got %d %s", tc.name, tc.error, w.Code, w.Body.String())
		}
		w = api.do(t, http.MethodPost, "/refreshtoken", "", gin.H{"AccessToken": "a.b.c", "RefreshToken": "r"}, tc.gate)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 on refresh, got %d", tc.name, w.Code)
		}
		w = api.do(t, http.MethodGet, "/no-such-route", "", nil, tc.gate)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected gate to run before routing, got %d", tc.name, w.Code)
		}
	}
	if n := api.store.calls.Load(); n != 0 {
		t.Fatalf("expected no store access, got %d calls", n)
	}
}

func TestSignInRefreshScenario(t *testing.T) {
	api := newTestAPI(t)

	w := api.call(t, http.MethodPost, "/signin", "", gin.H{"email": "a@x.com", "password": "p"})
	if w.Code != http.StatusOK {
		t.Fatalf("sign in: %d %s", w.Code, w.Body.String())
	}
	var raw map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &raw)
	if raw["AccessToken"] == "" || raw["RefreshToken"] == "" {
		t.Fatalf("expected AccessToken and RefreshToken keys, got %v", raw)
	}

	w = api.call(t, http.MethodPost, "/refreshtoken", "", gin.H{"AccessToken": raw["AccessToken"], "RefreshToken": raw["RefreshToken"]})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", w.Code, w.Body.String())
	}

	w = api.call(t, http.MethodPost, "/refreshtoken", "", gin.H{"AccessToken": raw["AccessToken"], "RefreshToken": raw["RefreshToken"]})
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "invalid refresh token") {
		t.Fatalf("expected stale refresh rejected, got %d %s", w.Code, w.Body.String())
	}

	w = api.call(t, http.MethodPost, "/refreshtoken", "", gin.H{"AccessToken": "abc", "RefreshToken": raw["RefreshToken"]})
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "invalid access token") {
		t.Fatalf("expected malformed access token rejected, got %d %s", w.Code, w.Body.String())
	}
}

func TestSignIn_Failures(t *testing.T) {
	api := newTestAPI(t)

	w := api.call(t, http.MethodPost, "/signin", "", gin.H{"email": "a@x.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/signin", "", gin.H{"email": "not-an-email", "password": "p"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed email, got %d", w.Code)
	}
	w = api.call(t, http.MethodPost, "/signin", "", gin.H{"email": "a@x.com"})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "password is required") {
		t.Fatalf("expected 400 with field error, got %d %s", w.Code, w.Body.String())
	}
}

func TestPolicyGuards(t *testing.T) {
	api := newTestAPI(t)
	user := api.signIn(t, "a@x.com", "p")
	admin := api.signIn(t, "admin@x.com", "root")

	if w := api.call(t, http.MethodGet, "/api/usermanager/getusers", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", w.Code)
	}
	if w := api.call(t, http.MethodGet, "/api/usermanager/getusers", user.AccessToken, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for common user, got %d", w.Code)
	}
	if w := api.call(t, http.MethodGet, "/api/usermanager/ensurecreated", user.AccessToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for common user, got %d", w.Code)
	}
	if w := api.call(t, http.MethodGet, "/api/usermanager/ensurecreated", admin.AccessToken, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/api/usermanager/adduser", user.AccessToken, gin.H{"email": "b@x.com", "password": "pw"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without app access, got %d", w.Code)
	}
}

func TestUserManagement(t *testing.T) {
	api := newTestAPI(t)
	admin := api.signIn(t, "admin@x.com", "root")

	w := api.call(t, http.MethodPost, "/api/usermanager/adduser", admin.AccessToken, gin.H{"email": "b@x.com", "password": "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("add user: %d %s", w.Code, w.Body.String())
	}
	var created directory.Principal
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	if w := api.call(t, http.MethodPost, "/api/usermanager/adduser", admin.AccessToken, gin.H{"email": "b@x.com", "password": "pw"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 duplicate, got %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/api/usermanager/adduser", admin.AccessToken, gin.H{"email": "not-an-email", "password": "pw"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid email, got %d", w.Code)
	}

	b := api.signIn(t, "b@x.com", "pw")

	if w := api.call(t, http.MethodPost, "/api/usermanager/addrole", admin.AccessToken, gin.H{"roleName": "moderator"}); w.Code != http.StatusOK {
		t.Fatalf("add role: %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/api/usermanager/addrole", admin.AccessToken, gin.H{"roleName": "moderator"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 duplicate role, got %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/api/usermanager/addroletouser", admin.AccessToken, gin.H{"userId": created.ID, "role": "moderator"}); w.Code != http.StatusOK {
		t.Fatalf("add role to user: %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/api/usermanager/removerolefromuser", admin.AccessToken, gin.H{"userId": created.ID, "role": "moderator"}); w.Code != http.StatusOK {
		t.Fatalf("remove role: %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/api/usermanager/deleterole", admin.AccessToken, gin.H{"role": "moderator"}); w.Code != http.StatusOK {
		t.Fatalf("delete role: %d", w.Code)
	}

	if w := api.call(t, http.MethodPost, "/api/usermanager/deleteuser", admin.AccessToken, gin.H{"userId": created.ID}); w.Code != http.StatusOK {
		t.Fatalf("delete user: %d %s", w.Code, w.Body.String())
	}
	w = api.call(t, http.MethodPost, "/refreshtoken", "", gin.H{"AccessToken": b.AccessToken, "RefreshToken": b.RefreshToken})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted user, got %d", w.Code)
	}
}

func TestUserManagement_RejectsMalformedUserID(t *testing.T) {
	api := newTestAPI(t)
	admin := api.signIn(t, "admin@x.com", "root")

	for _, tc := range []struct {
		path string
		body gin.H
	}{
		{"/api/usermanager/addroletouser", gin.H{"userId": "abc", "role": "admin_access"}},
		{"/api/usermanager/removerolefromuser", gin.H{"userId": "abc", "role": "admin_access"}},
		{"/api/usermanager/deleteuser", gin.H{"userId": "abc"}},
		{"/signout", gin.H{"userId": "abc"}},
	} {
		w := api.call(t, http.MethodPost, tc.path, admin.AccessToken, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d %s", tc.path, w.Code, w.Body.String())
		}
		var body struct {
			Fields map[string]string `json:"fields"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Fields["userId"] != "userId must be a valid UUID" {
			t.Fatalf("%s: unexpected fields %v", tc.path, body.Fields)
		}
	}
}

func TestUserManagement_RecreatesDeletedDefaultRole(t *testing.T) {
	api := newTestAPI(t)
	admin := api.signIn(t, "admin@x.com", "root")

	if w := api.call(t, http.MethodPost, "/api/usermanager/deleterole", admin.AccessToken, gin.H{"role": "common_user_access"}); w.Code != http.StatusOK {
		t.Fatalf("delete role: %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/api/usermanager/adduser", admin.AccessToken, gin.H{"email": "b@x.com", "password": "p1"}); w.Code != http.StatusOK {
		t.Fatalf("add user: %d %s", w.Code, w.Body.String())
	}
	api.signIn(t, "b@x.com", "p1")
}

func TestSignOut(t *testing.T) {
	api := newTestAPI(t)
	pair := api.signIn(t, "a@x.com", "p")

	if w := api.call(t, http.MethodPost, "/signout", pair.AccessToken, gin.H{"userId": api.admin.ID}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 signing out someone else, got %d", w.Code)
	}
	if w := api.call(t, http.MethodPost, "/signout", pair.AccessToken, gin.H{"userId": api.user.ID}); w.Code != http.StatusOK {
		t.Fatalf("sign out: %d %s", w.Code, w.Body.String())
	}
	w := api.call(t, http.MethodPost, "/refreshtoken", "", gin.H{"AccessToken": pair.AccessToken, "RefreshToken": pair.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign out, got %d", w.Code)
	}
}

func TestPanicIsLoggedAndHidden(t *testing.T) {
	api := newTestAPI(t)

	w := api.call(t, http.MethodGet, "/boom", "", nil)
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "hunter2") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}

	admin := api.signIn(t, "admin@x.com", "root")
	w = api.call(t, http.MethodGet, "/api/log/latest", admin.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("latest logs: %d", w.Code)
	}
	var entries []faultlog.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil || len(entries) != 1 {
		t.Fatalf("expected one fault entry, got %v %s", err, w.Body.String())
	}
}

func TestGroupsByUserID(t *testing.T) {
	api := newTestAPI(t)
	pair := api.signIn(t, "a@x.com", "p")

	if w := api.call(t, http.MethodGet, "/api/group/groupsbyuserid/not-a-uuid", pair.AccessToken, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w := api.call(t, http.MethodGet, "/api/group/groupsbyuserid/"+api.user.ID, pair.AccessToken, nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"result":[]}` {
		t.Fatalf("expected empty list, got %d %s", w.Code, w.Body.String())
	}
}
