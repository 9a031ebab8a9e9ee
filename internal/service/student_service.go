package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sekolahku/studentinfo/internal/attendance"
	"github.com/sekolahku/studentinfo/internal/dto"
	"github.com/sekolahku/studentinfo/internal/live"
	"github.com/sekolahku/studentinfo/internal/model"
	"github.com/sekolahku/studentinfo/internal/repository"
	"github.com/sekolahku/studentinfo/pkg/apperror"
)

// Caller identifies the authenticated user on operations that branch on
// role or ownership.
type Caller struct {
	UserID uuid.UUID
	Role   model.RoleKind
}

type StudentService interface {
	Create(ctx context.Context, input dto.CreateStudentInput) (*dto.StudentResponse, error)
	List(ctx context.Context, filter dto.StudentFilter) (*dto.StudentListResponse, error)
	Get(ctx context.Context, id uuid.UUID, caller Caller) (*dto.StudentResponse, error)
	Update(ctx context.Context, id uuid.UUID, input dto.UpdateStudentInput) (*dto.StudentResponse, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	MarkAttendance(ctx context.Context, id uuid.UUID, input dto.MarkAttendanceInput, markedBy uuid.UUID) (*dto.AttendanceResponse, error)
	ListAttendance(ctx context.Context, id uuid.UUID, filter dto.AttendanceRangeFilter, caller Caller) (*dto.AttendanceListResponse, error)
	BatchMark(ctx context.Context, class, section string, input dto.BatchAttendanceInput, markedBy uuid.UUID) ([]dto.BatchResult, error)
}

type studentService struct {
	students repository.StudentRepository
	users    repository.UserRepository
	hub      *live.Hub
}

func NewStudentService(students repository.StudentRepository, users repository.UserRepository, hub *live.Hub) StudentService {
	return &studentService{
		students: students,
		users:    users,
		hub:      hub,
	}
}

func (s *studentService) Create(ctx context.Context, input dto.CreateStudentInput) (*dto.StudentResponse, error) {
	dob, err := parseDate(input.DateOfBirth)
	if err != nil {
		return nil, apperror.Validation(apperror.FieldError{Field: "dateOfBirth", Message: "Valid date of birth is required"})
	}

	// Uniqueness pre-check, not just the store constraint: a duplicate must
	// fail before the user account write happens.
	if _, err := s.students.FindByStudentID(ctx, input.StudentID); err == nil {
		return nil, apperror.Conflict("Student with this ID already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperror.Conflict("Email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role, err := s.users.FindRoleByName(ctx, model.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("student role missing: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roleID := role.ID
	user := &model.User{
		Username:     input.StudentID,
		Email:        input.Email,
		PasswordHash: string(hashed),
		RoleID:       &roleID,
		IsActive:     true,
	}

	student := &model.Student{
		StudentID:    input.StudentID,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		DateOfBirth:  dob,
		Gender:       input.Gender,
		Phone:        input.Phone,
		Class:        input.Class,
		Section:      input.Section,
		AcademicYear: input.AcademicYear,
		IsActive:     true,
	}
	if input.Address != nil {
		student.Address = model.Address{
			Street:  input.Address.Street,
			City:    input.Address.City,
			State:   input.Address.State,
			ZipCode: input.Address.ZipCode,
			Country: input.Address.Country,
		}
	}

	if err := s.students.CreateWithUser(ctx, user, student); err != nil {
		return nil, err
	}

	created, err := s.students.FindByID(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	res := dto.NewStudentResponse(created)
	return &res, nil
}

func (s *studentService) List(ctx context.Context, filter dto.StudentFilter) (*dto.StudentListResponse, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	students, total, err := s.students.FindAll(ctx, filter.Class, filter.Section, filter.Search, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.StudentResponse, 0, len(students))
	for _, st := range students {
		responses = append(responses, dto.NewStudentResponse(st))
	}

	return &dto.StudentListResponse{
		Success:     true,
		Students:    responses,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
		Total:       total,
	}, nil
}

func (s *studentService) Get(ctx context.Context, id uuid.UUID, caller Caller) (*dto.StudentResponse, error) {
	student, err := s.findStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorizeStudentAccess(student, caller); err != nil {
		return nil, err
	}

	res := dto.NewStudentResponse(student)
	return &res, nil
}

func (s *studentService) Update(ctx context.Context, id uuid.UUID, input dto.UpdateStudentInput) (*dto.StudentResponse, error) {
	student, err := s.findStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DateOfBirth != nil {
		dob, err := parseDate(*input.DateOfBirth)
		if err != nil {
			return nil, apperror.Validation(apperror.FieldError{Field: "dateOfBirth", Message: "Valid date of birth is required"})
		}
		student.DateOfBirth = dob
	}
	if input.FirstName != nil {
		student.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		student.LastName = *input.LastName
	}
	if input.Gender != nil {
		student.Gender = *input.Gender
	}
	if input.Phone != nil {
		student.Phone = *input.Phone
	}
	if input.Address != nil {
		student.Address = model.Address{
			Street:  input.Address.Street,
			City:    input.Address.City,
			State:   input.Address.State,
			ZipCode: input.Address.ZipCode,
			Country: input.Address.Country,
		}
	}
	if input.Class != nil {
		student.Class = *input.Class
	}
	if input.Section != nil {
		student.Section = *input.Section
	}
	if input.AcademicYear != nil {
		student.AcademicYear = *input.AcademicYear
	}

	if err := s.students.Update(ctx, student); err != nil {
		return nil, err
	}

	res := dto.NewStudentResponse(student)
	return &res, nil
}

func (s *studentService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	student, err := s.findStudent(ctx, id)
	if err != nil {
		return err
	}

	return s.students.Deactivate(ctx, student)
}

func (s *studentService) MarkAttendance(ctx context.Context, id uuid.UUID, input dto.MarkAttendanceInput, markedBy uuid.UUID) (*dto.AttendanceResponse, error) {
	student, err := s.findStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	obs := attendance.Observation{
		Status:   input.Status,
		Remarks:  input.Remarks,
		MarkedBy: markedBy,
	}
	if input.Date != "" {
		date, err := parseDate(input.Date)
		if err != nil {
			return nil, apperror.Validation(apperror.FieldError{Field: "date", Message: "Valid date is required"})
		}
		obs.Date = date
	}

	record, _, err := s.applyObservation(ctx, student, obs)
	if err != nil {
		return nil, err
	}

	res := dto.NewAttendanceResponse(*record)
	return &res, nil
}

func (s *studentService) ListAttendance(ctx context.Context, id uuid.UUID, filter dto.AttendanceRangeFilter, caller Caller) (*dto.AttendanceListResponse, error) {
	student, err := s.findStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorizeStudentAccess(student, caller); err != nil {
		return nil, err
	}

	start := time.Unix(0, 0).UTC()
	if filter.StartDate != "" {
		if start, err = parseDate(filter.StartDate); err != nil {
			return nil, apperror.Validation(apperror.FieldError{Field: "startDate", Message: "Valid start date is required"})
		}
	}
	end := time.Now().UTC()
	if filter.EndDate != "" {
		if end, err = parseDate(filter.EndDate); err != nil {
			return nil, apperror.Validation(apperror.FieldError{Field: "endDate", Message: "Valid end date is required"})
		}
		// A bare end date means "through that whole day".
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	filtered := make([]dto.AttendanceResponse, 0, len(student.Attendance))
	for _, rec := range student.Attendance {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		filtered = append(filtered, dto.NewAttendanceResponse(rec))
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Date.After(filtered[j].Date)
	})

	// The percentage is over the full history, not the filtered window.
	return &dto.AttendanceListResponse{
		Success:              true,
		Attendance:           filtered,
		TotalRecords:         len(filtered),
		AttendancePercentage: model.PercentagePresent(student.Attendance),
	}, nil
}

func (s *studentService) BatchMark(ctx context.Context, class, section string, input dto.BatchAttendanceInput, markedBy uuid.UUID) ([]dto.BatchResult, error) {
	if len(input.Records) == 0 {
		return nil, apperror.New(http.StatusBadRequest, "Attendance records are required", apperror.ErrInvalidInput)
	}

	date := time.Now().UTC()
	if input.Date != "" {
		var err error
		if date, err = parseDate(input.Date); err != nil {
			return nil, apperror.Validation(apperror.FieldError{Field: "date", Message: "Valid date is required"})
		}
	}

	// Strictly sequential and per-student independent: one bad record never
	// aborts its siblings, and earlier writes are not rolled back.
	results := make([]dto.BatchResult, 0, len(input.Records))
	for _, rec := range input.Records {
		id, err := uuid.Parse(rec.StudentID)
		if err != nil {
			results = append(results, dto.BatchResult{StudentID: rec.StudentID, Success: false, Message: "Student not found"})
			continue
		}

		student, err := s.students.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				results = append(results, dto.BatchResult{StudentID: rec.StudentID, Success: false, Message: "Student not found"})
				continue
			}
			return nil, err
		}

		obs := attendance.Observation{
			Date:     date,
			Status:   rec.Status,
			Remarks:  rec.Remarks,
			MarkedBy: markedBy,
		}
		if _, _, err := s.applyObservation(ctx, student, obs); err != nil {
			results = append(results, dto.BatchResult{StudentID: rec.StudentID, Success: false, Message: "Failed to save attendance"})
			continue
		}

		results = append(results, dto.BatchResult{StudentID: rec.StudentID, Success: true})
	}

	return results, nil
}

// applyObservation runs the reconciler against the student's history and
// persists the touched record.
func (s *studentService) applyObservation(ctx context.Context, student *model.Student, obs attendance.Observation) (*model.AttendanceRecord, bool, error) {
	records, idx, updated := attendance.Reconcile(student.Attendance, obs)
	record := &records[idx]
	record.StudentRef = student.ID

	var err error
	if updated {
		err = s.students.UpdateAttendance(ctx, record)
	} else {
		err = s.students.CreateAttendance(ctx, record)
	}
	if err != nil {
		return nil, false, err
	}

	student.Attendance = records

	s.hub.Broadcast(live.Event{
		StudentID:   student.ID,
		StudentCode: student.StudentID,
		FullName:    student.FullName(),
		Class:       student.Class,
		Section:     student.Section,
		Date:        record.Date,
		Status:      record.Status,
		MarkedBy:    record.MarkedBy,
		Updated:     updated,
	})

	return record, updated, nil
}

func (s *studentService) findStudent(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Student not found")
		}
		return nil, err
	}
	return student, nil
}

// authorizeStudentAccess lets staff through and restricts a student caller
// to their own record.
func authorizeStudentAccess(student *model.Student, caller Caller) error {
	switch caller.Role {
	case model.RoleKindAdmin, model.RoleKindTeacher:
		return nil
	case model.RoleKindStudent:
		if student.UserID == caller.UserID {
			return nil
		}
		return apperror.Forbidden("Access denied")
	default:
		return apperror.Forbidden("Access denied")
	}
}

// parseDate accepts RFC 3339 timestamps and bare ISO dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
