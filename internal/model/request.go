package model

import "time"

type RequestKind string

const (
	KindPermission RequestKind = "permission"
	KindLeave      RequestKind = "leave"
)

func (k RequestKind) Valid() bool { return k == KindPermission || k == KindLeave }

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

func (s RequestStatus) Terminal() bool { return s == StatusApproved || s == StatusRejected }

// Request is a time-bounded application covering [FromTs, ToTs).
type Request struct {
	ID             uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Empid          string        `json:"empid" gorm:"size:64;not null;index:idx_requests_empid_from,priority:1;index:idx_requests_empid_status,priority:1"`
	Kind           RequestKind   `json:"kind" gorm:"size:16;not null"`
	TypeLabel      string        `json:"type_label" gorm:"size:100;not null"`
	AppliedAt      time.Time     `json:"applied_at" gorm:"not null"`
	FromTs         time.Time     `json:"from_ts" gorm:"not null;index:idx_requests_empid_from,priority:2"`
	ToTs           time.Time     `json:"to_ts" gorm:"not null"`
	Reason         string        `json:"reason" gorm:"type:text;not null"`
	Status         RequestStatus `json:"status" gorm:"size:16;not null;default:'pending';index:idx_requests_empid_status,priority:2"`
	BusinessDays   int           `json:"business_days" gorm:"not null;default:0"`
	DecidedByEmpid *string       `json:"decided_by_empid" gorm:"size:64"`
	DecidedByName  *string       `json:"decided_by_name" gorm:"size:255"`
	DecidedAt      *time.Time    `json:"decided_at"`
	CreatedAt      time.Time     `json:"-"`
	UpdatedAt      time.Time     `json:"-"`
}

func (Request) TableName() string { return "requests" }

// Duration is the length of [FromTs, ToTs).
func (r Request) Duration() time.Duration { return r.ToTs.Sub(r.FromTs) }
