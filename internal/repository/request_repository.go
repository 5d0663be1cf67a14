package repository

import (
	"context"
	"time"

	"hr-request-backend/internal/model"

	"gorm.io/gorm"
)

type ListFilter struct {
	Empid          string
	Status         model.RequestStatus
	Kind           model.RequestKind
	ReportsToEmpid string // only requests of this manager's direct reports
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id uint) (*model.Request, error)
	// CountActive counts non-rejected requests of kind whose FromTs lies in [from, to).
	CountActive(ctx context.Context, empid string, kind model.RequestKind, from, to time.Time) (int64, error)
	// FindOverlapping lists non-rejected requests of empid intersecting [from, to), earliest first.
	FindOverlapping(ctx context.Context, empid string, from, to time.Time, excludeID uint) ([]model.Request, error)
	// Transition moves a pending request to a terminal status. It reports false
	// when the row was no longer pending, so the first committer wins.
	Transition(ctx context.Context, id uint, status model.RequestStatus, deciderEmpid, deciderName string, at time.Time) (bool, error)
	List(ctx context.Context, filter ListFilter, limit int) ([]model.Request, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepository) GetByID(ctx context.Context, id uint) (*model.Request, error) {
	var req model.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&req).Error
	if err != nil {
		return nil, err
	}
	if req.ID == 0 {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (r *requestRepository) CountActive(ctx context.Context, empid string, kind model.RequestKind, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Request{}).
		Where("empid = ? AND kind = ? AND status <> ?", empid, kind, model.StatusRejected).
		Where("from_ts >= ? AND from_ts < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *requestRepository) FindOverlapping(ctx context.Context, empid string, from, to time.Time, excludeID uint) ([]model.Request, error) {
	var list []model.Request
	q := r.db.WithContext(ctx).
		Where("empid = ? AND status <> ?", empid, model.StatusRejected).
		Where("from_ts < ? AND to_ts > ?", to, from)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Order("from_ts asc").Find(&list).Error
	return list, err
}

func (r *requestRepository) Transition(ctx context.Context, id uint, status model.RequestStatus, deciderEmpid, deciderName string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":           status,
			"decided_by_empid": deciderEmpid,
			"decided_by_name":  deciderName,
			"decided_at":       at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *requestRepository) List(ctx context.Context, filter ListFilter, limit int) ([]model.Request, error) {
	var list []model.Request
	q := scopeRequests(r.db.WithContext(ctx).Model(&model.Request{}), filter)
	err := q.Order("requests.applied_at desc").Order("requests.id desc").Limit(limit).Find(&list).Error
	return list, err
}

func scopeRequests(q *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.ReportsToEmpid != "" {
		// Join ke tabel users untuk mencari bawahan dari atasan ini
		q = q.Joins("JOIN users ON users.empid = requests.empid").
			Where("users.reports_to_empid = ?", filter.ReportsToEmpid)
	}
	if filter.Empid != "" {
		q = q.Where("requests.empid = ?", filter.Empid)
	}
	if filter.Status != "" {
		q = q.Where("requests.status = ?", filter.Status)
	}
	if filter.Kind != "" {
		q = q.Where("requests.kind = ?", filter.Kind)
	}
	return q
}
