package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/tracelit/tracelit/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Participant struct {
	ID         string `gorm:"primarykey"`
	Identifier string `gorm:"uniqueIndex;not null"`
	Metadata   datatypes.JSONMap
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`

	Threads []Thread `gorm:"foreignKey:ParticipantID"`
}

func (p *Participant) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Participant) Save(db *gorm.DB) error {
	return errors.Wrapf(db.Save(p).Error, "failed to save participant")
}

func (p *Participant) Delete(db *gorm.DB) error {
	return errors.Wrapf(db.Delete(p).Error, "failed to delete participant")
}
