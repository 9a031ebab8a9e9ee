// Package attendance holds the reconciliation logic that keeps a student's
// attendance history at one entry per UTC calendar day.
package attendance

import (
	"time"

	"github.com/google/uuid"

	"github.com/sekolahku/studentinfo/internal/model"
)

// Observation is one incoming attendance mark for a student.
type Observation struct {
	Date     time.Time
	Status   model.AttendanceStatus
	Remarks  string
	MarkedBy uuid.UUID
}

// Reconcile applies an observation to a student's attendance history.
//
// If a record already exists for the observation's UTC calendar day, its
// status, remarks and marker are overwritten in place; the record keeps the
// date it was first recorded with. Otherwise a new record is appended.
// The returned index points at the touched record, updated reports whether
// an existing record was overwritten rather than a new one created.
//
// Reconcile never fails: status and date validation belongs to the caller.
func Reconcile(records []model.AttendanceRecord, obs Observation) (out []model.AttendanceRecord, idx int, updated bool) {
	if obs.Date.IsZero() {
		obs.Date = time.Now().UTC()
	}
	day := model.DayKey(obs.Date)

	for i := range records {
		if model.DayKey(records[i].Date) == day {
			records[i].Status = obs.Status
			records[i].Remarks = obs.Remarks
			records[i].MarkedBy = obs.MarkedBy
			return records, i, true
		}
	}

	records = append(records, model.AttendanceRecord{
		Date:     obs.Date,
		Day:      day,
		Status:   obs.Status,
		Remarks:  obs.Remarks,
		MarkedBy: obs.MarkedBy,
	})
	return records, len(records) - 1, false
}
