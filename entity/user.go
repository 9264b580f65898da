package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             string `gorm:"primarykey"`
	Email          string `gorm:"uniqueIndex;not null"`
	Name           string
	HashedPassword string
	Image          string
	CreatedAt      time.Time `gorm:"autoCreateTime"`

	ApiKeys []ApiKey `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
