// Package inmem provides in-memory repository implementations used by
// service and handler tests.
package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sekolahku/studentinfo/internal/model"
	"github.com/sekolahku/studentinfo/internal/repository"
)

type DB struct {
	mu       sync.Mutex
	roles    map[string]*model.Role
	users    map[uuid.UUID]*model.User
	students map[uuid.UUID]*model.Student

	// AttendanceErr, when set for a student id, makes attendance writes for
	// that student fail. Used to exercise per-item batch failures.
	AttendanceErr map[uuid.UUID]error

	nextRoleID uint
}

func Open() *DB {
	return &DB{
		roles:         make(map[string]*model.Role),
		users:         make(map[uuid.UUID]*model.User),
		students:      make(map[uuid.UUID]*model.Student),
		AttendanceErr: make(map[uuid.UUID]error),
	}
}

// SeedRoles installs the three default roles.
func (db *DB) SeedRoles() {
	for _, name := range []string{model.RoleAdmin, model.RoleTeacher, model.RoleStudent} {
		db.nextRoleID++
		db.roles[name] = &model.Role{ID: db.nextRoleID, Name: name}
	}
}

func (db *DB) Role(name string) *model.Role {
	return db.roles[name]
}

// AddUser stores a user with the given role and returns it.
func (db *DB) AddUser(username, email, passwordHash, roleName string, active bool) *model.User {
	db.mu.Lock()
	defer db.mu.Unlock()

	role := db.roles[roleName]
	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		RoleID:       &role.ID,
		Role:         *role,
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
	}
	db.users[user.ID] = user
	return user
}

// AddStudent stores a student linked to user and returns it.
func (db *DB) AddStudent(user *model.User, studentID, firstName, lastName, class, section string) *model.Student {
	db.mu.Lock()
	defer db.mu.Unlock()

	student := &model.Student{
		ID:           uuid.New(),
		UserID:       user.ID,
		User:         *user,
		StudentID:    studentID,
		FirstName:    firstName,
		LastName:     lastName,
		DateOfBirth:  time.Date(2008, 5, 1, 0, 0, 0, 0, time.UTC),
		Gender:       model.GenderOther,
		Class:        class,
		Section:      section,
		AcademicYear: "2024-2025",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	db.students[student.ID] = student
	return student
}

// Student returns the canonical stored student, for asserting persistence.
func (db *DB) Student(id uuid.UUID) *model.Student {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.students[id]
}

func (db *DB) User(id uuid.UUID) *model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[id]
}

func copyStudent(s *model.Student) *model.Student {
	cp := *s
	cp.Attendance = make([]model.AttendanceRecord, len(s.Attendance))
	copy(cp.Attendance, s.Attendance)
	return &cp
}

// ---- UserRepository ----

type userRepo struct {
	db *DB
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.RoleID != nil {
		for _, role := range r.db.roles {
			if role.ID == *user.RoleID {
				user.Role = *role
			}
		}
	}
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, user := range r.db.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *userRepo) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	role, ok := r.db.roles[name]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.db.users[user.ID] = &cp
	return nil
}

// ---- StudentRepository ----

type studentRepo struct {
	db *DB
}

func NewStudentRepository(db *DB) repository.StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) CreateWithUser(ctx context.Context, user *model.User, student *model.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.RoleID != nil {
		for _, role := range r.db.roles {
			if role.ID == *user.RoleID {
				user.Role = *role
			}
		}
	}
	userCp := *user
	r.db.users[user.ID] = &userCp

	if student.ID == uuid.Nil {
		student.ID = uuid.New()
	}
	student.UserID = user.ID
	student.User = userCp
	student.CreatedAt = time.Now().UTC()
	student.UpdatedAt = student.CreatedAt
	r.db.students[student.ID] = copyStudent(student)
	return nil
}

func (r *studentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	student, ok := r.db.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyStudent(student), nil
}

func (r *studentRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, student := range r.db.students {
		if student.StudentID == studentID {
			return copyStudent(student), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *studentRepo) FindAll(ctx context.Context, class, section, search string, offset, limit int) ([]*model.Student, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var matched []*model.Student
	for _, student := range r.db.students {
		if !student.IsActive {
			continue
		}
		if class != "" && student.Class != class {
			continue
		}
		if section != "" && student.Section != section {
			continue
		}
		if search != "" && !matchesSearch(student, search) {
			continue
		}
		matched = append(matched, copyStudent(student))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func matchesSearch(student *model.Student, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(student.FirstName), needle) ||
		strings.Contains(strings.ToLower(student.LastName), needle) ||
		strings.Contains(strings.ToLower(student.StudentID), needle)
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[student.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	student.UpdatedAt = time.Now().UTC()
	r.db.students[student.ID] = copyStudent(student)
	return nil
}

func (r *studentRepo) Deactivate(ctx context.Context, student *model.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.students[student.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.IsActive = false
	if user, ok := r.db.users[stored.UserID]; ok {
		user.IsActive = false
	}
	return nil
}

func (r *studentRepo) CreateAttendance(ctx context.Context, record *model.AttendanceRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.AttendanceErr[record.StudentRef]; err != nil {
		return err
	}

	student, ok := r.db.students[record.StudentRef]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Day == "" {
		record.Day = model.DayKey(record.Date)
	}
	student.Attendance = append(student.Attendance, *record)
	return nil
}

func (r *studentRepo) UpdateAttendance(ctx context.Context, record *model.AttendanceRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.AttendanceErr[record.StudentRef]; err != nil {
		return err
	}

	student, ok := r.db.students[record.StudentRef]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	for i := range student.Attendance {
		if student.Attendance[i].ID == record.ID {
			student.Attendance[i] = *record
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
