package entity

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ScoreType string

const (
	ScoreTypeAI    ScoreType = "AI"
	ScoreTypeHuman ScoreType = "HUMAN"
)

type Score struct {
	ID                      string `gorm:"primarykey"`
	Name                    string
	Type                    ScoreType
	Value                   float64
	Comment                 string
	Tags                    datatypes.JSONSlice[string]
	StepID                  *string `gorm:"index"`
	GenerationID            *string
	DatasetExperimentItemID *string
}

func (s *Score) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
