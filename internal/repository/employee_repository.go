package repository

import (
	"context"

	"hr-request-backend/internal/model"

	"gorm.io/gorm"
)

type EmployeeRepository interface {
	FindByEmpid(ctx context.Context, empid string) (*model.Employee, error)
	GetByReportsTo(ctx context.Context, managerEmpid string) ([]model.Employee, error)
}

type employeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db}
}

func (r *employeeRepository) FindByEmpid(ctx context.Context, empid string) (*model.Employee, error) {
	var emp model.Employee
	// Find + Limit(1) agar gorm tidak mencetak log "record not found"
	err := r.db.WithContext(ctx).Where("empid = ?", empid).Limit(1).Find(&emp).Error
	if err != nil {
		return nil, err
	}
	if emp.InternalID == 0 {
		return nil, ErrNotFound
	}
	return &emp, nil
}

func (r *employeeRepository) GetByReportsTo(ctx context.Context, managerEmpid string) ([]model.Employee, error) {
	var list []model.Employee
	err := r.db.WithContext(ctx).Where("reports_to_empid = ?", managerEmpid).Order("name asc").Find(&list).Error
	return list, err
}
