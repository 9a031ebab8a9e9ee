package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sekolahku/studentinfo/internal/model"
)

type StudentRepository interface {
	// CreateWithUser persists the login account and the student record in one
	// transaction, so a failed second write leaves no orphan user behind.
	CreateWithUser(ctx context.Context, user *model.User, student *model.Student) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*model.Student, error)
	FindAll(ctx context.Context, class, section, search string, offset, limit int) ([]*model.Student, int64, error)
	Update(ctx context.Context, student *model.Student) error
	// Deactivate soft-deletes the student and its linked user together.
	Deactivate(ctx context.Context, student *model.Student) error
	CreateAttendance(ctx context.Context, record *model.AttendanceRecord) error
	UpdateAttendance(ctx context.Context, record *model.AttendanceRecord) error
}

type studentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) CreateWithUser(ctx context.Context, user *model.User, student *model.Student) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		student.UserID = user.ID
		if err := tx.Create(student).Error; err != nil {
			return err
		}

		return nil
	})
}

func (r *studentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("User.Role").
		Preload("Attendance").
		Where("id = ?", id).
		First(&student).Error; err != nil {
		return nil, err
	}

	return &student, nil
}

func (r *studentRepository) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	var student model.Student
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("User.Role").
		Preload("Attendance").
		Where("student_id = ?", studentID).
		First(&student).Error; err != nil {
		return nil, err
	}

	return &student, nil
}

func (r *studentRepository) FindAll(ctx context.Context, class, section, search string, offset, limit int) ([]*model.Student, int64, error) {
	var students []*model.Student
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("is_active = ?", true)

	if class != "" {
		query = query.Where("class = ?", class)
	}

	if section != "" {
		query = query.Where("section = ?", section)
	}

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR student_id ILIKE ?", pattern, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("User").
		Preload("User.Role").
		Preload("Attendance").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *studentRepository) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepository) Deactivate(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Student{}).
			Where("id = ?", student.ID).
			Update("is_active", false).Error; err != nil {
			return err
		}

		return tx.Model(&model.User{}).
			Where("id = ?", student.UserID).
			Update("is_active", false).Error
	})
}

func (r *studentRepository) CreateAttendance(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *studentRepository) UpdateAttendance(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}
