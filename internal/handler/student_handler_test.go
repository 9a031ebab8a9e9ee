package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/studentinfo/internal/middleware"
	"github.com/sekolahku/studentinfo/internal/model"
	"github.com/sekolahku/studentinfo/internal/repository/inmem"
	"github.com/sekolahku/studentinfo/internal/service"
)

type testEnv struct {
	db     *inmem.DB
	router *gin.Engine
}

// asUser injects the identity the auth middleware would normally set.
func asUser(userID uuid.UUID, kind model.RoleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Set("role", kind.String())
		c.Set("role_kind", kind)
	}
}

// setupEnv wires the student routes against an in-memory store. When callerID
// is uuid.Nil the request runs as the seeded teacher.
func setupEnv(t *testing.T, callerID uuid.UUID, kind model.RoleKind) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := inmem.Open()
	db.SeedRoles()
	teacher := db.AddUser("teacher1", "teacher@school.local", "x", model.RoleTeacher, true)

	if callerID == uuid.Nil {
		callerID = teacher.ID
		kind = model.RoleKindTeacher
	}

	svc := service.NewStudentService(inmem.NewStudentRepository(db), inmem.NewUserRepository(db), nil)
	h := NewStudentHandler(svc)

	authMW := middleware.NewAuthMiddleware(inmem.NewUserRepository(db), "test-secret")
	staff := authMW.RequireRoles(model.RoleKindAdmin, model.RoleKindTeacher)

	router := gin.New()
	api := router.Group("/api", asUser(callerID, kind))
	students := api.Group("/students")
	{
		students.POST("", staff, h.Create)
		students.GET("", staff, h.List)
		students.GET("/:id", h.Get)
		students.PUT("/:id", staff, h.Update)
		students.DELETE("/:id", authMW.RequireRoles(model.RoleKindAdmin), h.Delete)
		students.POST("/:id/attendance", staff, h.MarkAttendance)
		students.GET("/:id/attendance", h.ListAttendance)
		students.POST("/class/:class/section/:section/attendance", staff, h.BatchMarkAttendance)
	}

	return &testEnv{db: db, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func validStudentBody(studentID string) map[string]interface{} {
	return map[string]interface{}{
		"studentId":    studentID,
		"firstName":    "Asha",
		"lastName":     "Rahman",
		"dateOfBirth":  "2008-05-01",
		"gender":       "female",
		"class":        "10",
		"section":      "A",
		"academicYear": "2024-2025",
		"email":        studentID + "@school.local",
		"password":     "secret123",
	}
}

func TestCreateStudentEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	rec := env.do(t, http.MethodPost, "/api/students", validStudentBody("S100"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	payload := decode(t, rec)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "Student created successfully", payload["message"])
	student := payload["student"].(map[string]interface{})
	assert.Equal(t, "S100", student["studentId"])
	assert.Equal(t, "Asha Rahman", student["fullName"])

	// Duplicate student id conflicts.
	body := validStudentBody("S100")
	body["email"] = "other@school.local"
	rec = env.do(t, http.MethodPost, "/api/students", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateStudentEndpoint_validation(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	body := validStudentBody("S100")
	delete(body, "firstName")
	body["gender"] = "none"

	rec := env.do(t, http.MethodPost, "/api/students", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, false, payload["success"])
	errs := payload["errors"].([]interface{})
	assert.NotEmpty(t, errs)
}

func TestCreateStudentEndpoint_forbiddenForStudents(t *testing.T) {
	env := setupEnv(t, uuid.New(), model.RoleKindStudent)
	rec := env.do(t, http.MethodPost, "/api/students", validStudentBody("S100"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListStudentsEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	for i := 1; i <= 3; i++ {
		code := fmt.Sprintf("S%d", i)
		rec := env.do(t, http.MethodPost, "/api/students", validStudentBody(code))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/students?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, float64(3), payload["total"])
	assert.Equal(t, float64(2), payload["totalPages"])
	assert.Equal(t, float64(1), payload["currentPage"])
	assert.Len(t, payload["students"].([]interface{}), 2)
}

func TestGetStudentEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	rec := env.do(t, http.MethodGet, "/api/students/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed ids can never match a student.
	rec = env.do(t, http.MethodGet, "/api/students/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStudentEndpoint_ownership(t *testing.T) {
	env := setupEnv(t, uuid.New(), model.RoleKindStudent)
	owner := env.db.AddUser("s1", "s1@school.local", "x", model.RoleStudent, true)
	student := env.db.AddStudent(owner, "S1", "Budi", "Santoso", "10", "A")

	rec := env.do(t, http.MethodGet, "/api/students/"+student.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStudentEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	rec := env.do(t, http.MethodPost, "/api/students", validStudentBody("S100"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)["student"].(map[string]interface{})
	id := created["id"].(string)

	rec = env.do(t, http.MethodPut, "/api/students/"+id, map[string]interface{}{"section": "B"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)["student"].(map[string]interface{})
	assert.Equal(t, "B", updated["section"])
	assert.Equal(t, "Asha", updated["firstName"])

	rec = env.do(t, http.MethodPut, "/api/students/"+uuid.NewString(), map[string]interface{}{"section": "B"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteStudentEndpoint_adminOnly(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0) // caller is a teacher

	rec := env.do(t, http.MethodPost, "/api/students", validStudentBody("S100"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["student"].(map[string]interface{})["id"].(string)

	rec = env.do(t, http.MethodDelete, "/api/students/"+id, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteStudentEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.New(), model.RoleKindAdmin)

	rec := env.do(t, http.MethodPost, "/api/students", validStudentBody("S100"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["student"].(map[string]interface{})["id"].(string)

	rec = env.do(t, http.MethodDelete, "/api/students/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Student deleted successfully", decode(t, rec)["message"])

	sid, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.False(t, env.db.Student(sid).IsActive)
}

func TestMarkAttendanceEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	rec := env.do(t, http.MethodPost, "/api/students", validStudentBody("S100"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["student"].(map[string]interface{})["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/students/"+id+"/attendance", map[string]interface{}{
		"status": "present",
		"date":   "2024-01-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	payload := decode(t, rec)
	assert.Equal(t, "Attendance marked successfully", payload["message"])
	attendance := payload["attendance"].(map[string]interface{})
	assert.Equal(t, "present", attendance["status"])

	// Unknown status values never reach the service.
	rec = env.do(t, http.MethodPost, "/api/students/"+id+"/attendance", map[string]interface{}{"status": "tardy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/students/"+uuid.NewString()+"/attendance", map[string]interface{}{"status": "present"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAttendanceEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	rec := env.do(t, http.MethodPost, "/api/students", validStudentBody("S100"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["student"].(map[string]interface{})["id"].(string)

	for _, day := range []string{"2024-01-10", "2024-01-11"} {
		rec = env.do(t, http.MethodPost, "/api/students/"+id+"/attendance", map[string]interface{}{
			"status": "present",
			"date":   day,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/students/"+id+"/attendance?startDate=2024-01-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, float64(1), payload["totalRecords"])
	assert.Equal(t, float64(100), payload["attendancePercentage"])
	assert.Len(t, payload["attendance"].([]interface{}), 1)
}

func TestBatchAttendanceEndpoint(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	var ids []string
	for i := 1; i <= 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/students", validStudentBody(fmt.Sprintf("S%d", i)))
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode(t, rec)["student"].(map[string]interface{})["id"].(string))
	}

	rec := env.do(t, http.MethodPost, "/api/students/class/10/section/A/attendance", map[string]interface{}{
		"date": "2024-01-10",
		"records": []map[string]interface{}{
			{"studentId": ids[0], "status": "present"},
			{"studentId": uuid.NewString(), "status": "absent"},
			{"studentId": ids[1], "status": "late"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	payload := decode(t, rec)
	results := payload["results"].([]interface{})
	require.Len(t, results, 3)
	assert.Equal(t, true, results[0].(map[string]interface{})["success"])
	assert.Equal(t, false, results[1].(map[string]interface{})["success"])
	assert.Equal(t, "Student not found", results[1].(map[string]interface{})["message"])
	assert.Equal(t, true, results[2].(map[string]interface{})["success"])
}

func TestBatchAttendanceEndpoint_emptyRecords(t *testing.T) {
	env := setupEnv(t, uuid.Nil, 0)

	rec := env.do(t, http.MethodPost, "/api/students/class/10/section/A/attendance", map[string]interface{}{
		"records": []map[string]interface{}{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Attendance records are required")
}
