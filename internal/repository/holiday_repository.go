package repository

import (
	"context"

	"hr-request-backend/internal/model"

	"gorm.io/gorm"
)

type HolidayRepository interface {
	GetAll(ctx context.Context) ([]model.Holiday, error)
	Create(ctx context.Context, libur *model.Holiday) error
	Delete(ctx context.Context, id uint) error
	IsHoliday(ctx context.Context, date string) (bool, error)
	GetByID(ctx context.Context, id uint) (*model.Holiday, error)
	Update(ctx context.Context, libur *model.Holiday) error
	HolidayDates(ctx context.Context, from, to string) ([]string, error)
}

type holidayRepository struct {
	db *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &holidayRepository{db}
}

func (r *holidayRepository) GetAll(ctx context.Context) ([]model.Holiday, error) {
	var liburs []model.Holiday
	err := r.db.WithContext(ctx).Order("date desc").Find(&liburs).Error
	return liburs, err
}

func (r *holidayRepository) Create(ctx context.Context, libur *model.Holiday) error {
	return r.db.WithContext(ctx).Create(libur).Error
}

func (r *holidayRepository) Delete(ctx context.Context, id uint) error {
	// Hard delete: tanggal yang sama harus bisa didaftarkan ulang (unique index)
	res := r.db.WithContext(ctx).Unscoped().Delete(&model.Holiday{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *holidayRepository) IsHoliday(ctx context.Context, date string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Holiday{}).Where("date = ?", date).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *holidayRepository) GetByID(ctx context.Context, id uint) (*model.Holiday, error) {
	var libur model.Holiday
	err := r.db.WithContext(ctx).First(&libur, id).Error
	return &libur, err
}

func (r *holidayRepository) Update(ctx context.Context, libur *model.Holiday) error {
	return r.db.WithContext(ctx).Save(libur).Error
}

func (r *holidayRepository) HolidayDates(ctx context.Context, from, to string) ([]string, error) {
	var dates []string
	err := r.db.WithContext(ctx).Model(&model.Holiday{}).
		Where("date >= ? AND date <= ?", from, to).
		Order("date asc").
		Pluck("date", &dates).Error
	return dates, err
}
