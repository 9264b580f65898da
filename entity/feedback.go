package entity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Feedback struct {
	ID       string `gorm:"primarykey"`
	Value    float64
	Strategy string `gorm:"default:BINARY"`
	Comment  string
	StepID   *string `gorm:"uniqueIndex"`
	ThreadID *string
}

func (f *Feedback) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
