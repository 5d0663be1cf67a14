package repository

import (
	"context"

	"hr-request-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeeLocker serializes writers of the same employee for the rest of the
// enclosing transaction. It must be called on a transactional handle.
type EmployeeLocker interface {
	Lock(ctx context.Context, empid string) error
}

type employeeLocker struct {
	db *gorm.DB
}

func NewEmployeeLocker(db *gorm.DB) EmployeeLocker {
	return &employeeLocker{db}
}

func (l *employeeLocker) Lock(ctx context.Context, empid string) error {
	tx := l.db.WithContext(ctx)
	if tx.Dialector.Name() == "postgres" {
		// Advisory lock transaksi; dilepas otomatis saat commit/rollback
		return tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", empid).Error
	}
	// MySQL: kunci baris karyawan
	var emp model.Employee
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("internal_id").
		Where("empid = ?", empid).
		Limit(1).
		Find(&emp).Error
}
