package model

import "time"

// Employee is owned by the HR flows; the request engine only reads it.
type Employee struct {
	InternalID     uint      `json:"internal_id" gorm:"column:internal_id;primaryKey;autoIncrement"`
	Empid          string    `json:"empid" gorm:"column:empid;size:64;uniqueIndex:ux_users_empid;not null"`
	Name           string    `json:"name" gorm:"size:255;not null"`
	Email          string    `json:"email" gorm:"size:255"`
	ReportsToEmpid *string   `json:"reports_to_empid" gorm:"column:reports_to_empid;size:64"`
	Role           string    `json:"role" gorm:"size:32;not null;default:'staff'"`
	Active         bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Employee) TableName() string { return "users" }

const (
	RoleStaff   = "staff"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)
