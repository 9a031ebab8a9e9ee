package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sekolahku/studentinfo/internal/dto"
	"github.com/sekolahku/studentinfo/internal/middleware"
	"github.com/sekolahku/studentinfo/internal/service"
	"github.com/sekolahku/studentinfo/pkg/apperror"
	"github.com/sekolahku/studentinfo/pkg/response"
)

type StudentHandler struct {
	studentService service.StudentService
}

func NewStudentHandler(studentService service.StudentService) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
	}
}

func (h *StudentHandler) Create(c *gin.Context) {
	var input dto.CreateStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindingError(c, err)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Student created successfully",
		"student": student,
	})
}

func (h *StudentHandler) List(c *gin.Context) {
	var filter dto.StudentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindingError(c, err)
		return
	}

	res, err := h.studentService.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *StudentHandler) Get(c *gin.Context) {
	id, caller, err := h.studentRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	student, err := h.studentService.Get(c.Request.Context(), id, caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "student": student})
}

func (h *StudentHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.UpdateStudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindingError(c, err)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Student updated successfully",
		"student": student,
	})
}

func (h *StudentHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.studentService.SoftDelete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student deleted successfully"})
}

func (h *StudentHandler) MarkAttendance(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	markedBy, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.MarkAttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindingError(c, err)
		return
	}

	record, err := h.studentService.MarkAttendance(c.Request.Context(), id, input, markedBy)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Attendance marked successfully",
		"attendance": record,
	})
}

func (h *StudentHandler) ListAttendance(c *gin.Context) {
	id, caller, err := h.studentRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter dto.AttendanceRangeFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindingError(c, err)
		return
	}

	res, err := h.studentService.ListAttendance(c.Request.Context(), id, filter, caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *StudentHandler) BatchMarkAttendance(c *gin.Context) {
	markedBy, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input dto.BatchAttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindingError(c, err)
		return
	}

	results, err := h.studentService.BatchMark(c.Request.Context(), c.Param("class"), c.Param("section"), input, markedBy)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

func (h *StudentHandler) studentRequest(c *gin.Context) (uuid.UUID, service.Caller, error) {
	id, err := parseID(c)
	if err != nil {
		return uuid.Nil, service.Caller{}, err
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		return uuid.Nil, service.Caller{}, err
	}

	return id, service.Caller{UserID: userID, Role: middleware.RoleKind(c)}, nil
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// A malformed id can never match a student.
		return uuid.Nil, apperror.NotFound("Student not found")
	}
	return id, nil
}
