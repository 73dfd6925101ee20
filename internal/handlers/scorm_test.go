package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amar635/esaksham-rev/internal/db"
	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/repos"
	"github.com/amar635/esaksham-rev/internal/requestdata"
	"github.com/amar635/esaksham-rev/internal/services"
)

func newBridgeRouter(t *testing.T, learnerID uint) *gin.Engine {
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

	runtimeService := services.NewRuntimeService(
		gdb, log, services.NewSessionStore(), repos.NewCMIEntryRepo(gdb, log))
	h := NewScormHandler(log, runtimeService)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if learnerID != 0 {
			rd := &requestdata.RequestData{LearnerID: learnerID}
			c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		}
		c.Next()
	})
	bridge := router.Group("/api/lms/scorm/:course_id")
	bridge.POST("/initialize", h.Initialize)
	bridge.POST("/get_value", h.GetValue)
	bridge.POST("/set_value", h.SetValue)
	bridge.POST("/commit", h.Commit)
	bridge.POST("/finish", h.Finish)
	bridge.POST("/get_last_error", h.GetLastError)
	bridge.POST("/get_error_string", h.GetErrorString)
	bridge.POST("/get_diagnostic", h.GetDiagnostic)
	return router
}

func callBridge(t *testing.T, router *gin.Engine, path string, body any) (int, map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func TestBridgeLifecycleWire(t *testing.T) {
	router := newBridgeRouter(t, 7)

	// set_value before initialize: 200 with code 132, never an HTTP error.
	status, resp := callBridge(t, router, "/api/lms/scorm/1/set_value",
		gin.H{"element": "cmi.core.lesson_status", "value": "completed"})
	if status != http.StatusOK {
		t.Fatalf("set_value status = %d, want 200", status)
	}
	if resp["result"] != "false" || resp["errorCode"] != "132" {
		t.Fatalf("set_value before initialize = %v, want false/132", resp)
	}

	status, resp = callBridge(t, router, "/api/lms/scorm/1/initialize", nil)
	if status != http.StatusOK || resp["result"] != "true" || resp["errorCode"] != "0" {
		t.Fatalf("initialize = %d %v, want 200 true/0", status, resp)
	}

	// Unset key reads as empty value with the general error code.
	_, resp = callBridge(t, router, "/api/lms/scorm/1/get_value",
		gin.H{"element": "cmi.core.lesson_status"})
	if resp["result"] != "" || resp["errorCode"] != "101" {
		t.Fatalf("get_value on unset key = %v, want \"\"/101", resp)
	}

	_, resp = callBridge(t, router, "/api/lms/scorm/1/set_value",
		gin.H{"element": "cmi.core.lesson_status", "value": "completed"})
	if resp["result"] != "true" || resp["errorCode"] != "0" {
		t.Fatalf("set_value = %v, want true/0", resp)
	}

	_, resp = callBridge(t, router, "/api/lms/scorm/1/get_value",
		gin.H{"element": "cmi.core.lesson_status"})
	if resp["result"] != "completed" || resp["errorCode"] != "0" {
		t.Fatalf("get_value = %v, want completed/0", resp)
	}

	// Empty element key is an invalid argument.
	_, resp = callBridge(t, router, "/api/lms/scorm/1/set_value",
		gin.H{"element": "", "value": "x"})
	if resp["result"] != "false" || resp["errorCode"] != "201" {
		t.Fatalf("set_value with empty key = %v, want false/201", resp)
	}

	_, resp = callBridge(t, router, "/api/lms/scorm/1/commit", nil)
	if resp["result"] != "true" || resp["errorCode"] != "0" {
		t.Fatalf("commit = %v, want true/0", resp)
	}

	_, resp = callBridge(t, router, "/api/lms/scorm/1/finish", nil)
	if resp["result"] != "true" || resp["errorCode"] != "0" {
		t.Fatalf("finish = %v, want true/0", resp)
	}

	// Terminated: writes fail with 132 until a new initialize.
	_, resp = callBridge(t, router, "/api/lms/scorm/1/set_value",
		gin.H{"element": "cmi.core.exit", "value": "suspend"})
	if resp["result"] != "false" || resp["errorCode"] != "132" {
		t.Fatalf("set_value after finish = %v, want false/132", resp)
	}
}

func TestBridgeWithoutLearnerSession(t *testing.T) {
	router := newBridgeRouter(t, 0)
	status, resp := callBridge(t, router, "/api/lms/scorm/1/initialize", nil)
	if status != http.StatusOK {
		t.Fatalf("initialize status = %d, want 200", status)
	}
	if resp["result"] != "false" || resp["errorCode"] != "101" {
		t.Fatalf("initialize without learner = %v, want false/101", resp)
	}
}

func TestBridgeDiagnosticsWire(t *testing.T) {
	router := newBridgeRouter(t, 7)

	_, resp := callBridge(t, router, "/api/lms/scorm/1/get_last_error", nil)
	if resp["result"] != "0" || resp["errorCode"] != "0" {
		t.Fatalf("get_last_error = %v, want 0/0", resp)
	}

	cases := []struct {
		code string
		want string
	}{
		{"0", "No Error"},
		{"101", "General Exception"},
		{"132", "LMS Not Initialized"},
		{"201", "Invalid Argument Error"},
		{"999", "Unknown Error"},
	}
	for _, tc := range cases {
		_, resp := callBridge(t, router, "/api/lms/scorm/1/get_error_string",
			gin.H{"errorCode": tc.code})
		if resp["result"] != tc.want || resp["errorCode"] != "0" {
			t.Errorf("get_error_string(%s) = %v, want %q/0", tc.code, resp, tc.want)
		}
	}

	_, resp = callBridge(t, router, "/api/lms/scorm/1/get_diagnostic", nil)
	if resp["result"] != "" || resp["errorCode"] != "0" {
		t.Fatalf("get_diagnostic = %v, want \"\"/0", resp)
	}
}

func TestBridgeBadCourseID(t *testing.T) {
	router := newBridgeRouter(t, 7)
	_, resp := callBridge(t, router, "/api/lms/scorm/not-a-number/initialize", nil)
	if resp["result"] != "false" || resp["errorCode"] != "101" {
		t.Fatalf("initialize with bad course id = %v, want false/101", resp)
	}
}
