package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gender is a closed set; values outside it are rejected at binding time.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// AttendanceStatus is the recorded presence status for one calendar day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
	StatusExcused AttendanceStatus = "excused"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// Counted reports whether the status counts toward the attendance percentage.
func (s AttendanceStatus) Counted() bool {
	return s == StatusPresent || s == StatusLate
}

// Address is embedded into Student; every field is optional.
type Address struct {
	Street  string `gorm:"size:255" json:"street,omitempty"`
	City    string `gorm:"size:100" json:"city,omitempty"`
	State   string `gorm:"size:100" json:"state,omitempty"`
	ZipCode string `gorm:"size:20" json:"zip_code,omitempty"`
	Country string `gorm:"size:100" json:"country,omitempty"`
}

type Student struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User         User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	StudentID    string    `gorm:"size:50;uniqueIndex;not null" json:"student_id"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	DateOfBirth  time.Time `gorm:"not null" json:"date_of_birth"`
	Gender       Gender    `gorm:"size:10;not null" json:"gender"`
	Phone        string    `gorm:"size:30" json:"phone,omitempty"`
	Address      Address   `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Class        string    `gorm:"size:50;not null" json:"class"`
	Section      string    `gorm:"size:50;not null" json:"section"`
	AcademicYear string    `gorm:"size:20;not null" json:"academic_year"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Attendance []AttendanceRecord `gorm:"foreignKey:StudentRef;constraint:OnDelete:CASCADE" json:"attendance,omitempty"`
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// FullName is derived, never stored.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// AttendancePercentage is computed over the full attendance history: the
// rounded share of entries marked present or late. An empty history is 0.
func (s *Student) AttendancePercentage() int {
	return PercentagePresent(s.Attendance)
}

func PercentagePresent(records []AttendanceRecord) int {
	if len(records) == 0 {
		return 0
	}
	counted := 0
	for _, r := range records {
		if r.Status.Counted() {
			counted++
		}
	}
	return int(math.Round(float64(counted) / float64(len(records)) * 100))
}

// AttendanceRecord is one day's recorded presence status for a student.
// Day holds the UTC calendar day of Date; the (student_ref, day) unique index
// enforces one entry per day at the storage layer on top of the reconciler.
type AttendanceRecord struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	StudentRef uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_student_day" json:"-"`
	Date       time.Time        `gorm:"not null" json:"date"`
	Day        string           `gorm:"size:10;not null;uniqueIndex:idx_attendance_student_day" json:"-"`
	Status     AttendanceStatus `gorm:"size:10;not null;default:absent" json:"status"`
	MarkedBy   uuid.UUID        `gorm:"type:uuid;not null" json:"marked_by"`
	Remarks    string           `gorm:"type:text" json:"remarks,omitempty"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *AttendanceRecord) BeforeSave(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Day == "" {
		a.Day = DayKey(a.Date)
	}
	return nil
}

// DayKey normalizes a timestamp to its UTC calendar day. All day-equality
// checks in the system go through this one conversion.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
