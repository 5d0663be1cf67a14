package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = gorm.ErrRecordNotFound

// Repositories groups every repository bound to the same handle.
type Repositories struct {
	Employees EmployeeRepository
	Requests  RequestRepository
	Punches   AttendanceRepository
	Holidays  HolidayRepository
	Locker    EmployeeLocker
	Dashboard DashboardRepository
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Employees: NewEmployeeRepository(db),
		Requests:  NewRequestRepository(db),
		Punches:   NewAttendanceRepository(db),
		Holidays:  NewHolidayRepository(db),
		Locker:    NewEmployeeLocker(db),
		Dashboard: NewDashboardRepository(db),
	}
}

// Store hands out repositories, either on the pool or inside one transaction.
type Store interface {
	Repositories() Repositories
	// WithinTransaction commits when fn returns nil and rolls back otherwise.
	WithinTransaction(ctx context.Context, fn func(Repositories) error) error
}

type gormStore struct {
	db    *gorm.DB
	repos Repositories
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db, repos: newRepositories(db)}
}

func (s *gormStore) Repositories() Repositories { return s.repos }

// txOptions pins READ COMMITTED on every dialect. InnoDB defaults to
// REPEATABLE READ, where a read taken after EmployeeLocker.Lock would still
// see the snapshot from the transaction's first statement.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	}, txOptions)
}
