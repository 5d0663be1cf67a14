package database

import (
	"context"
	"fmt"
	"log/slog"

	"hr-request-backend/internal/model"

	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

// Employees seeded for a fresh environment. The staff members report to the
// manager so the approval flow works out of the box.
var seedEmployees = []model.Employee{
	{Empid: "9000", Name: "Administrator", Email: "admin@example.com", Role: model.RoleAdmin, Active: true},
	{Empid: "2001", Name: "Manager One", Email: "manager@example.com", Role: model.RoleManager, Active: true},
	{Empid: "1027", Name: "Asha Kulkarni", Email: "asha@example.com", Role: model.RoleStaff, Active: true, ReportsToEmpid: strPtr("2001")},
	{Empid: "1030", Name: "Ravi Menon", Email: "ravi@example.com", Role: model.RoleStaff, Active: true, ReportsToEmpid: strPtr("2001")},
}

var seedHolidays = []model.Holiday{
	{Date: "2026-01-26", Description: "Republic Day"},
	{Date: "2026-03-04", Description: "Holi"},
	{Date: "2026-08-15", Description: "Independence Day"},
	{Date: "2026-10-02", Description: "Gandhi Jayanti"},
	{Date: "2026-12-25", Description: "Christmas"},
}

// SeedAll is safe to run repeatedly: rows are matched on their natural key.
func SeedAll(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	db = db.WithContext(ctx)

	// 1. Seed pegawai; atasan dulu supaya FK reports_to terpenuhi
	for _, e := range seedEmployees {
		emp := e
		if err := db.Where(model.Employee{Empid: emp.Empid}).FirstOrCreate(&emp).Error; err != nil {
			return fmt.Errorf("seed employee %s: %w", e.Empid, err)
		}
	}
	logger.Info("employees seeded", slog.Int("count", len(seedEmployees)))

	// 2. Seed hari libur nasional
	for _, h := range seedHolidays {
		libur := h
		if err := db.Where(model.Holiday{Date: libur.Date}).FirstOrCreate(&libur).Error; err != nil {
			return fmt.Errorf("seed holiday %s: %w", h.Date, err)
		}
	}
	logger.Info("holidays seeded", slog.Int("count", len(seedHolidays)))
	return nil
}
