package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amar635/esaksham-rev/internal/db"
	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/middleware"
	"github.com/amar635/esaksham-rev/internal/repos"
	"github.com/amar635/esaksham-rev/internal/services"
)

func newLRSRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	statementService := services.NewStatementService(
		gdb,
		log,
		repos.NewStatementRepo(gdb, log),
		repos.NewActivityRepo(gdb, log),
		repos.NewAgentRepo(gdb, log),
	)
	h := NewLRSHandler(log, statementService)
	auth := middleware.NewAuthMiddleware(log, "test-secret")

	router := gin.New()
	lrs := router.Group("/api/lrs")
	lrs.GET("/about", h.About)
	authed := lrs.Group("")
	authed.Use(auth.RequireLRSAuth())
	{
		authed.PUT("/statements", h.PutStatement)
		authed.GET("/statements", h.GetStatements)
		authed.GET("/statements/:id", h.GetStatement)
		authed.GET("/activities/*id", h.GetActivity)
		authed.GET("/stats", h.Stats)
	}
	return router
}

func lrsRequest(t *testing.T, router *gin.Engine, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.SetBasicAuth("lrs_user", "lrs_password")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const wireStatement = `{
	"actor": {"mbox": "mailto:asha@example.gov", "name": "Asha"},
	"verb": {"id": "http://adlnet.gov/expapi/verbs/completed", "display": {"en-US": "completed"}},
	"object": {
		"id": "http://example.gov/activities/rti-101",
		"definition": {"name": {"en-US": "RTI 101"}, "description": {"en-US": "module"}, "type": "course"}
	},
	"timestamp": "2026-08-29T10:15:00Z"
}`

func TestPutStatementRequiresAuth(t *testing.T) {
	router := newLRSRouter(t)
	rec := lrsRequest(t, router, http.MethodPut, "/api/lrs/statements?statementId=x", wireStatement, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated PUT status = %d, want 401", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["error"] != "Authentication required" {
		t.Fatalf("error body = %v", out)
	}
}

func TestPutStatementEchoesID(t *testing.T) {
	router := newLRSRouter(t)
	rec := lrsRequest(t, router, http.MethodPut, "/api/lrs/statements?statementId=abc-123", wireStatement, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d body=%s, want 200", rec.Code, rec.Body.String())
	}
	var ids []string
	if err := json.Unmarshal(rec.Body.Bytes(), &ids); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ids) != 1 || ids[0] != "abc-123" {
		t.Fatalf("PUT response = %v, want [abc-123]", ids)
	}

	// Fetch it back under the echoed id.
	rec = lrsRequest(t, router, http.MethodGet, "/api/lrs/statements/abc-123", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET statement status = %d, want 200", rec.Code)
	}
	var statement map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &statement); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if statement["id"] != "abc-123" {
		t.Fatalf("statement id = %v", statement["id"])
	}
	if statement["authority"] != "lrs_user" {
		t.Fatalf("authority = %v, want basic-auth username", statement["authority"])
	}
}

func TestPutStatementBadPayload(t *testing.T) {
	router := newLRSRouter(t)
	rec := lrsRequest(t, router, http.MethodPut, "/api/lrs/statements", `{"verb":{"id":"v"}}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad payload status = %d, want 400", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["error"] == "" {
		t.Fatal("error body missing")
	}
}

func TestGetStatementsWire(t *testing.T) {
	router := newLRSRouter(t)
	rec := lrsRequest(t, router, http.MethodPut, "/api/lrs/statements?statementId=q-1", wireStatement, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed PUT status = %d", rec.Code)
	}

	rec = lrsRequest(t, router, http.MethodGet,
		"/api/lrs/statements?agent=mailto:asha@example.gov&verb=http://adlnet.gov/expapi/verbs/completed", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET statements status = %d", rec.Code)
	}
	var out struct {
		Statements []map[string]any `json:"statements"`
		More       bool             `json:"more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Statements) != 1 || out.Statements[0]["id"] != "q-1" {
		t.Fatalf("statements = %v", out.Statements)
	}
	if out.More {
		t.Fatal("more = true for an underfull page")
	}

	rec = lrsRequest(t, router, http.MethodGet, "/api/lrs/statements?since=not-a-time", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad since status = %d, want 400", rec.Code)
	}
}

func TestGetStatementNotFound(t *testing.T) {
	router := newLRSRouter(t)
	rec := lrsRequest(t, router, http.MethodGet, "/api/lrs/statements/nope", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing statement status = %d, want 404", rec.Code)
	}
}

func TestGetActivityProjection(t *testing.T) {
	router := newLRSRouter(t)
	rec := lrsRequest(t, router, http.MethodPut, "/api/lrs/statements", wireStatement, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed PUT status = %d", rec.Code)
	}

	rec = lrsRequest(t, router, http.MethodGet,
		"/api/lrs/activities/http://example.gov/activities/rti-101", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET activity status = %d body=%s", rec.Code, rec.Body.String())
	}
	var activity map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &activity); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if activity["id"] != "http://example.gov/activities/rti-101" {
		t.Fatalf("activity id = %v", activity["id"])
	}
	def := activity["definition"].(map[string]any)
	name := def["name"].(map[string]any)
	if name["en-US"] != "RTI 101" {
		t.Fatalf("activity name = %v", name)
	}

	rec = lrsRequest(t, router, http.MethodGet, "/api/lrs/activities/unknown", "", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing activity status = %d, want 404", rec.Code)
	}
}

func TestAboutIsPublic(t *testing.T) {
	router := newLRSRouter(t)
	rec := lrsRequest(t, router, http.MethodGet, "/api/lrs/about", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("about status = %d, want 200", rec.Code)
	}
	var out struct {
		Version    []string       `json:"version"`
		Extensions map[string]any `json:"extensions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Version) != 1 || out.Version[0] != "1.0.3" {
		t.Fatalf("about version = %v, want [1.0.3]", out.Version)
	}
}

func TestStatsSummary(t *testing.T) {
	router := newLRSRouter(t)
	for _, id := range []string{"st-1", "st-2"} {
		rec := lrsRequest(t, router, http.MethodPut, "/api/lrs/statements?statementId="+id, wireStatement, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("seed PUT %s status = %d", id, rec.Code)
		}
	}
	rec := lrsRequest(t, router, http.MethodGet, "/api/lrs/stats", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var out struct {
		TotalStatements int64 `json:"total_statements"`
		TotalActivities int64 `json:"total_activities"`
		TotalAgents     int64 `json:"total_agents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalStatements != 2 || out.TotalActivities != 1 || out.TotalAgents != 1 {
		t.Fatalf("stats = %+v, want 2/1/1", out)
	}
}
