package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApiKey struct {
	ID        string `gorm:"primarykey"`
	Name      string
	Key       string `gorm:"uniqueIndex;not null"`
	UserID    string `gorm:"index;not null"`
	ProjectID string
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (k *ApiKey) BeforeCreate(_ *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
