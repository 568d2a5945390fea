package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/toolshelf/toolshelf/internal/audit"
	"github.com/toolshelf/toolshelf/internal/cache"
	"github.com/toolshelf/toolshelf/internal/config"
	"github.com/toolshelf/toolshelf/internal/db"
	"github.com/toolshelf/toolshelf/internal/models"
	"github.com/toolshelf/toolshelf/internal/security"
	"github.com/toolshelf/toolshelf/internal/twofactor"
)

const testPassword = "correct horse battery staple"

type testEnv struct {
	conn      *gorm.DB
	engine    *gin.Engine
	twoFactor *twofactor.Service
}

func newTestEnv(t *testing.T, name string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	cipher, errCipher := security.NewCipher("admin-test-key")
	if errCipher != nil {
		t.Fatalf("new cipher: %v", errCipher)
	}
	twoFactor := twofactor.NewService("Toolshelf", cipher)
	jwtCfg := config.JWTConfig{Secret: "admin-test-jwt", Expiry: time.Hour}

	engine := gin.New()
	RegisterRoutes(engine, conn, jwtCfg, twoFactor, cache.New("", "", 0), audit.NewRecorder(conn))

	return &testEnv{conn: conn, engine: engine, twoFactor: twoFactor}
}

func (env *testEnv) createAdmin(t *testing.T, email string, active bool) models.Admin {
	t.Helper()
	hash, errHash := security.HashPassword(testPassword)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{Name: "Morgan", Email: email, Password: hash, Role: "admin", IsActive: active}
	if errCreate := env.conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}
	return admin
}

func (env *testEnv) request(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	env.engine.ServeHTTP(recorder, req)

	payload := map[string]any{}
	if len(recorder.Body.Bytes()) > 0 {
		if errUnmarshal := json.Unmarshal(recorder.Body.Bytes(), &payload); errUnmarshal != nil {
			t.Fatalf("unmarshal response %q: %v", recorder.Body.String(), errUnmarshal)
		}
	}
	return recorder, payload
}

func (env *testEnv) sessionToken(t *testing.T, email string) string {
	t.Helper()
	recorder, payload := env.request(t, http.MethodPost, "/api/admin/login", "", map[string]any{
		"email": email, "password": testPassword,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", recorder.Code, recorder.Body.String())
	}
	ticket, _ := payload["intermediate_token"].(string)

	recorder, payload = env.request(t, http.MethodPost, "/api/admin/authenticate", "", map[string]any{"token": ticket})
	if recorder.Code != http.StatusOK {
		t.Fatalf("authenticate status %d: %s", recorder.Code, recorder.Body.String())
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("missing session token")
	}
	return token
}

func (env *testEnv) seedPendingTool(t *testing.T, name string) models.Tool {
	t.Helper()
	hash, _ := security.HashPassword(testPassword)
	user := models.User{Name: "Alex", Email: name + "@example.com", Password: hash}
	if errCreate := env.conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	tool := models.Tool{
		Name:        name,
		Description: "A useful resource",
		URL:         "https://example.com/" + name,
		Difficulty:  models.DifficultyBeginner,
		Status:      models.ToolStatusPending,
		CreatedBy:   user.ID,
	}
	if errCreate := env.conn.Create(&tool).Error; errCreate != nil {
		t.Fatalf("create tool: %v", errCreate)
	}
	return tool
}

func TestAdminLoginFlow(t *testing.T) {
	env := newTestEnv(t, "login")
	env.createAdmin(t, "morgan@example.com", true)

	recorder, payload := env.request(t, http.MethodPost, "/api/admin/login", "", map[string]any{
		"email": "morgan@example.com", "password": testPassword,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", recorder.Code, recorder.Body.String())
	}
	if payload["requires_intermediate_auth"] != true {
		t.Fatalf("expected requires_intermediate_auth: %s", recorder.Body.String())
	}
	adminSummary, _ := payload["admin"].(map[string]any)
	if adminSummary["role"] != "admin" {
		t.Fatalf("expected role in summary: %s", recorder.Body.String())
	}

	token := env.sessionToken(t, "morgan@example.com")
	recorder, payload = env.request(t, http.MethodGet, "/api/admin/me", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("me status %d: %s", recorder.Code, recorder.Body.String())
	}
	me, _ := payload["admin"].(map[string]any)
	if me["email"] != "morgan@example.com" {
		t.Fatalf("unexpected me payload: %s", recorder.Body.String())
	}
}

func TestAdminLoginDeactivated(t *testing.T) {
	env := newTestEnv(t, "deactivated")
	env.createAdmin(t, "morgan@example.com", false)

	recorder, payload := env.request(t, http.MethodPost, "/api/admin/login", "", map[string]any{
		"email": "morgan@example.com", "password": testPassword,
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", recorder.Code, recorder.Body.String())
	}
	if payload["message"] != "This admin account has been deactivated." {
		t.Fatalf("unexpected message: %s", recorder.Body.String())
	}
}

func TestAdminDeactivatedDuringTicketWindow(t *testing.T) {
	env := newTestEnv(t, "deactivate_midflow")
	admin := env.createAdmin(t, "morgan@example.com", true)

	recorder, payload := env.request(t, http.MethodPost, "/api/admin/login", "", map[string]any{
		"email": "morgan@example.com", "password": testPassword,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login status %d", recorder.Code)
	}
	ticket, _ := payload["intermediate_token"].(string)

	if errUpdate := env.conn.Model(&admin).Update("is_active", false).Error; errUpdate != nil {
		t.Fatalf("deactivate: %v", errUpdate)
	}

	recorder, _ = env.request(t, http.MethodPost, "/api/admin/authenticate", "", map[string]any{"token": ticket})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after deactivation, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestAdminAuthenticateTwoFactor(t *testing.T) {
	env := newTestEnv(t, "twofactor")
	admin := env.createAdmin(t, "morgan@example.com", true)

	setup, errSetup := env.twoFactor.GenerateSecret(admin.Email)
	if errSetup != nil {
		t.Fatalf("generate secret: %v", errSetup)
	}
	codes, _ := twofactor.GenerateRecoveryCodes()
	encoded, _ := twofactor.EncodeRecoveryCodes(codes)
	now := time.Now().UTC()
	if errUpdate := env.conn.Model(&admin).Updates(map[string]any{
		"two_factor_secret":         setup.EncryptedSecret,
		"two_factor_enabled":        true,
		"two_factor_confirmed_at":   now,
		"two_factor_recovery_codes": encoded,
	}).Error; errUpdate != nil {
		t.Fatalf("enable 2fa: %v", errUpdate)
	}

	recorder, payload := env.request(t, http.MethodPost, "/api/admin/login", "", map[string]any{
		"email": "morgan@example.com", "password": testPassword,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login status %d", recorder.Code)
	}
	ticket, _ := payload["intermediate_token"].(string)

	recorder, payload = env.request(t, http.MethodPost, "/api/admin/authenticate", "", map[string]any{"token": ticket})
	if recorder.Code != http.StatusOK || payload["requires_2fa"] != true {
		t.Fatalf("expected 2fa prompt, got %d: %s", recorder.Code, recorder.Body.String())
	}

	code, errCode := totp.GenerateCode(setup.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	recorder, payload = env.request(t, http.MethodPost, "/api/admin/authenticate", "", map[string]any{
		"token": ticket, "two_factor_code": code,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status %d: %s", recorder.Code, recorder.Body.String())
	}
	if payload["token"] == "" {
		t.Fatalf("missing session token")
	}
}

func TestAdminApproveTool(t *testing.T) {
	env := newTestEnv(t, "approve")
	admin := env.createAdmin(t, "morgan@example.com", true)
	token := env.sessionToken(t, "morgan@example.com")
	tool := env.seedPendingTool(t, "figma")

	recorder, payload := env.request(t, http.MethodPost, fmt.Sprintf("/api/admin/tools/%d/approve", tool.ID), token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("approve status %d: %s", recorder.Code, recorder.Body.String())
	}
	data, _ := payload["data"].(map[string]any)
	if data["status"] != models.ToolStatusApproved {
		t.Fatalf("unexpected status: %s", recorder.Body.String())
	}

	var reloaded models.Tool
	if errFind := env.conn.First(&reloaded, tool.ID).Error; errFind != nil {
		t.Fatalf("reload: %v", errFind)
	}
	if reloaded.ApprovedBy == nil || *reloaded.ApprovedBy != admin.ID || reloaded.ApprovedAt == nil {
		t.Fatalf("approver not recorded: %+v", reloaded)
	}

	// Approving twice is refused.
	recorder, _ = env.request(t, http.MethodPost, fmt.Sprintf("/api/admin/tools/%d/approve", tool.ID), token, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for double approve, got %d", recorder.Code)
	}
}

func TestAdminRejectToolRequiresReason(t *testing.T) {
	env := newTestEnv(t, "reject")
	env.createAdmin(t, "morgan@example.com", true)
	token := env.sessionToken(t, "morgan@example.com")
	tool := env.seedPendingTool(t, "figma")

	recorder, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/admin/tools/%d/reject", tool.ID), token,
		map[string]any{"reason": "  "})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without reason, got %d", recorder.Code)
	}

	recorder, payload := env.request(t, http.MethodPost, fmt.Sprintf("/api/admin/tools/%d/reject", tool.ID), token,
		map[string]any{"reason": "duplicate submission"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("reject status %d: %s", recorder.Code, recorder.Body.String())
	}
	data, _ := payload["data"].(map[string]any)
	if data["status"] != models.ToolStatusRejected || data["rejection_reason"] != "duplicate submission" {
		t.Fatalf("unexpected payload: %s", recorder.Body.String())
	}
}

func TestAdminToolListFilters(t *testing.T) {
	env := newTestEnv(t, "filters")
	env.createAdmin(t, "morgan@example.com", true)
	token := env.sessionToken(t, "morgan@example.com")
	pending := env.seedPendingTool(t, "pending-tool")
	approved := env.seedPendingTool(t, "approved-tool")
	if errUpdate := env.conn.Model(&approved).Update("status", models.ToolStatusApproved).Error; errUpdate != nil {
		t.Fatalf("approve: %v", errUpdate)
	}

	recorder, payload := env.request(t, http.MethodGet, "/api/admin/tools?status=pending", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list status %d: %s", recorder.Code, recorder.Body.String())
	}
	rows, _ := payload["data"].([]any)
	if len(rows) != 1 {
		t.Fatalf("expected one pending tool, got %d", len(rows))
	}
	row, _ := rows[0].(map[string]any)
	if uint64(row["id"].(float64)) != pending.ID {
		t.Fatalf("wrong tool in pending filter: %s", recorder.Body.String())
	}

	recorder, payload = env.request(t, http.MethodGet, "/api/admin/tools?search=approved", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("search status %d", recorder.Code)
	}
	rows, _ = payload["data"].([]any)
	if len(rows) != 1 {
		t.Fatalf("expected one search hit, got %d", len(rows))
	}
}

func TestAdminStatsAndActivities(t *testing.T) {
	env := newTestEnv(t, "stats")
	env.createAdmin(t, "morgan@example.com", true)
	token := env.sessionToken(t, "morgan@example.com")
	tool := env.seedPendingTool(t, "figma")

	recorder, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/admin/tools/%d/approve", tool.ID), token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("approve status %d", recorder.Code)
	}

	recorder, payload := env.request(t, http.MethodGet, "/api/admin/stats", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("stats status %d: %s", recorder.Code, recorder.Body.String())
	}
	data, _ := payload["data"].(map[string]any)
	tools, _ := data["tools"].(map[string]any)
	if tools["total"] != float64(1) {
		t.Fatalf("expected one tool in stats: %s", recorder.Body.String())
	}
	byStatus, _ := tools["by_status"].(map[string]any)
	if byStatus[models.ToolStatusApproved] != float64(1) {
		t.Fatalf("expected approved count 1: %s", recorder.Body.String())
	}
	if data["users"] != float64(1) {
		t.Fatalf("expected one user: %s", recorder.Body.String())
	}

	recorder, payload = env.request(t, http.MethodGet, "/api/admin/activities", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("activities status %d: %s", recorder.Code, recorder.Body.String())
	}
	rows, _ := payload["data"].([]any)
	if len(rows) == 0 {
		t.Fatalf("expected the approval to be audited")
	}
	row, _ := rows[0].(map[string]any)
	if row["event"] != "tool.approved" {
		t.Fatalf("unexpected newest event: %s", recorder.Body.String())
	}
}

func TestAdminRoutesRejectUserToken(t *testing.T) {
	env := newTestEnv(t, "token_kind")
	env.createAdmin(t, "morgan@example.com", true)

	userToken, errSign := security.GenerateUserToken("admin-test-jwt", 1, "Alex", "alex@example.com", time.Hour)
	if errSign != nil {
		t.Fatalf("sign user token: %v", errSign)
	}

	recorder, _ := env.request(t, http.MethodGet, "/api/admin/me", userToken, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for user token on admin route, got %d", recorder.Code)
	}

	recorder, _ = env.request(t, http.MethodGet, "/api/admin/tools", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}
}
