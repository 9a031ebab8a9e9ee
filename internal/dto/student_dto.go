package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/sekolahku/studentinfo/internal/model"
)

type AddressInput struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type CreateStudentInput struct {
	StudentID    string        `json:"studentId" binding:"required"`
	FirstName    string        `json:"firstName" binding:"required"`
	LastName     string        `json:"lastName" binding:"required"`
	DateOfBirth  string        `json:"dateOfBirth" binding:"required"`
	Gender       model.Gender  `json:"gender" binding:"required,oneof=male female other"`
	Phone        string        `json:"phone"`
	Address      *AddressInput `json:"address"`
	Class        string        `json:"class" binding:"required"`
	Section      string        `json:"section" binding:"required"`
	AcademicYear string        `json:"academicYear" binding:"required"`
	Email        string        `json:"email" binding:"required,email"`
	Password     string        `json:"password" binding:"required,min=6"`
}

// UpdateStudentInput carries a partial update; nil fields are left untouched.
type UpdateStudentInput struct {
	FirstName    *string       `json:"firstName" binding:"omitempty,min=1"`
	LastName     *string       `json:"lastName" binding:"omitempty,min=1"`
	DateOfBirth  *string       `json:"dateOfBirth"`
	Gender       *model.Gender `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone        *string       `json:"phone"`
	Address      *AddressInput `json:"address"`
	Class        *string       `json:"class" binding:"omitempty,min=1"`
	Section      *string       `json:"section" binding:"omitempty,min=1"`
	AcademicYear *string       `json:"academicYear" binding:"omitempty,min=1"`
}

type StudentFilter struct {
	Page    int    `form:"page"`
	Limit   int    `form:"limit"`
	Class   string `form:"class"`
	Section string `form:"section"`
	Search  string `form:"search"`
}

type MarkAttendanceInput struct {
	Status  model.AttendanceStatus `json:"status" binding:"required,oneof=present absent late excused"`
	Date    string                 `json:"date"`
	Remarks string                 `json:"remarks"`
}

type AttendanceRangeFilter struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type BatchRecordInput struct {
	StudentID string                 `json:"studentId" binding:"required"`
	Status    model.AttendanceStatus `json:"status" binding:"required,oneof=present absent late excused"`
	Remarks   string                 `json:"remarks"`
}

type BatchAttendanceInput struct {
	Date    string             `json:"date"`
	Records []BatchRecordInput `json:"records"`
}

// BatchResult is the per-item outcome of a batch marking; output order
// matches input order.
type BatchResult struct {
	StudentID string `json:"studentId"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsActive bool      `json:"isActive"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.RoleName(),
		IsActive: u.IsActive,
	}
}

type AttendanceResponse struct {
	ID       uuid.UUID              `json:"id"`
	Date     time.Time              `json:"date"`
	Status   model.AttendanceStatus `json:"status"`
	MarkedBy uuid.UUID              `json:"markedBy"`
	Remarks  string                 `json:"remarks,omitempty"`
}

func NewAttendanceResponse(r model.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		ID:       r.ID,
		Date:     r.Date,
		Status:   r.Status,
		MarkedBy: r.MarkedBy,
		Remarks:  r.Remarks,
	}
}

type StudentResponse struct {
	ID                   uuid.UUID     `json:"id"`
	User                 UserResponse  `json:"user"`
	StudentID            string        `json:"studentId"`
	FirstName            string        `json:"firstName"`
	LastName             string        `json:"lastName"`
	FullName             string        `json:"fullName"`
	DateOfBirth          time.Time     `json:"dateOfBirth"`
	Gender               model.Gender  `json:"gender"`
	Phone                string        `json:"phone,omitempty"`
	Address              model.Address `json:"address"`
	Class                string        `json:"class"`
	Section              string        `json:"section"`
	AcademicYear         string        `json:"academicYear"`
	AttendancePercentage int           `json:"attendancePercentage"`
	IsActive             bool          `json:"isActive"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

func NewStudentResponse(s *model.Student) StudentResponse {
	return StudentResponse{
		ID:                   s.ID,
		User:                 NewUserResponse(&s.User),
		StudentID:            s.StudentID,
		FirstName:            s.FirstName,
		LastName:             s.LastName,
		FullName:             s.FullName(),
		DateOfBirth:          s.DateOfBirth,
		Gender:               s.Gender,
		Phone:                s.Phone,
		Address:              s.Address,
		Class:                s.Class,
		Section:              s.Section,
		AcademicYear:         s.AcademicYear,
		AttendancePercentage: s.AttendancePercentage(),
		IsActive:             s.IsActive,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

type StudentListResponse struct {
	Success     bool              `json:"success"`
	Students    []StudentResponse `json:"students"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Total       int64             `json:"total"`
}

type AttendanceListResponse struct {
	Success              bool                 `json:"success"`
	Attendance           []AttendanceResponse `json:"attendance"`
	TotalRecords         int                  `json:"totalRecords"`
	AttendancePercentage int                  `json:"attendancePercentage"`
}
