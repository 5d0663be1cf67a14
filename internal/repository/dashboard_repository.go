package repository

import (
	"context"
	"time"

	"hr-request-backend/internal/model"

	"gorm.io/gorm"
)

type StatusCount struct {
	Kind   model.RequestKind
	Status model.RequestStatus
	Count  int64
}

// DashboardRepository serves the aggregate counts behind the monthly summary.
type DashboardRepository interface {
	// RequestStats groups requests in scope whose FromTs lies in [from, to) by kind and status.
	RequestStats(ctx context.Context, filter ListFilter, from, to time.Time) ([]StatusCount, error)
	// CountActiveEmployees counts active employees, or only the direct
	// reports of reportsTo when it is set.
	CountActiveEmployees(ctx context.Context, reportsTo string) (int64, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db}
}

func (r *dashboardRepository) RequestStats(ctx context.Context, filter ListFilter, from, to time.Time) ([]StatusCount, error) {
	var rows []StatusCount
	q := scopeRequests(r.db.WithContext(ctx).Model(&model.Request{}), filter).
		Where("requests.from_ts >= ? AND requests.from_ts < ?", from, to)
	err := q.Group("requests.kind, requests.status").
		Select("requests.kind AS kind, requests.status AS status, count(*) AS count").
		Scan(&rows).Error
	return rows, err
}

func (r *dashboardRepository) CountActiveEmployees(ctx context.Context, reportsTo string) (int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Employee{}).Where("active = ?", true)
	if reportsTo != "" {
		q = q.Where("reports_to_empid = ?", reportsTo)
	}
	err := q.Count(&total).Error
	return total, err
}
