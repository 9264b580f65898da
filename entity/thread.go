package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/tracelit/tracelit/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Thread struct {
	ID            string `gorm:"primarykey"`
	Name          string
	Metadata      datatypes.JSONMap
	Environment   string
	Tags          datatypes.JSONSlice[string]
	CreatedAt     time.Time `gorm:"index;not null;autoCreateTime"`
	ParticipantID *string

	Participant *Participant `gorm:"foreignKey:ParticipantID"`
	Steps       []Step       `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
}

func (t *Thread) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *Thread) Save(db *gorm.DB) error {
	return errors.Wrapf(db.Save(t).Error, "failed to save thread")
}

func (t *Thread) Delete(db *gorm.DB) error {
	return errors.Wrapf(db.Delete(t).Error, "failed to delete thread")
}
