package model

import "gorm.io/gorm"

type Holiday struct {
	gorm.Model
	Date        string `json:"date" gorm:"column:date;size:10;uniqueIndex:ux_holidays_date;not null"` // Format YYYY-MM-DD
	Description string `json:"description"`
}

func (Holiday) TableName() string { return "holidays" }
