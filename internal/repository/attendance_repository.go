package repository

import (
	"context"

	"hr-request-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttendanceRepository interface {
	// CreateDerived inserts punches, leaving any row with the same
	// (empid, date, punch_kind, punch_ts) untouched.
	CreateDerived(ctx context.Context, punches []model.AttendancePunch) error
	GetByRequestID(ctx context.Context, requestID uint) ([]model.AttendancePunch, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db}
}

func (r *attendanceRepository) CreateDerived(ctx context.Context, punches []model.AttendancePunch) error {
	if len(punches) == 0 {
		return nil
	}
	// Constraint unik ada di (empid, date, punch_kind, punch_ts)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "empid"}, {Name: "date"}, {Name: "punch_kind"}, {Name: "punch_ts"},
		},
		DoNothing: true,
	}).Create(&punches).Error
}

func (r *attendanceRepository) GetByRequestID(ctx context.Context, requestID uint) ([]model.AttendancePunch, error) {
	var list []model.AttendancePunch
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("punch_ts asc").Find(&list).Error
	return list, err
}
