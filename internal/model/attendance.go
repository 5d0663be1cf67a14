package model

import (
	"time"

	"gorm.io/datatypes"
)

type PunchKind string

const (
	PunchIn  PunchKind = "in"
	PunchOut PunchKind = "out"
)

const (
	PunchStatusPresent = "present"
	PunchStatusOnLeave = "on_leave"
)

// AttendancePunch rows are shared with the check-in flows. Rows written by an
// approval carry RequestID; the engine never updates rows it did not derive.
type AttendancePunch struct {
	ID           uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Empid        string         `json:"empid" gorm:"size:64;not null;index:idx_punches_empid_date,priority:1;uniqueIndex:ux_punches_identity,priority:1"`
	NameSnapshot string         `json:"name_snapshot" gorm:"size:255"`
	Date         datatypes.Date `json:"date" gorm:"not null;index:idx_punches_empid_date,priority:2;uniqueIndex:ux_punches_identity,priority:2"`
	PunchKind    PunchKind      `json:"punch_kind" gorm:"size:8;not null;uniqueIndex:ux_punches_identity,priority:3"`
	PunchTs      time.Time      `json:"punch_ts" gorm:"not null;uniqueIndex:ux_punches_identity,priority:4"`
	Status       string         `json:"status" gorm:"size:16;not null;default:'present'"`
	RequestID    *uint          `json:"request_id" gorm:"index"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (AttendancePunch) TableName() string { return "attendance_punches" }
