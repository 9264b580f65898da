package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StepType string

const (
	StepTypeRun              StepType = "run"
	StepTypeTool             StepType = "tool"
	StepTypeLLM              StepType = "llm"
	StepTypeEmbedding        StepType = "embedding"
	StepTypeRetrieval        StepType = "retrieval"
	StepTypeRerank           StepType = "rerank"
	StepTypeUserMessage      StepType = "user_message"
	StepTypeAssistantMessage StepType = "assistant_message"
	StepTypeSystemMessage    StepType = "system_message"
	StepTypeUndefined        StepType = "undefined"
)

type Step struct {
	ID        string `gorm:"primarykey"`
	ThreadID  string `gorm:"index;not null"`
	ParentID  *string
	StartTime *time.Time
	EndTime   *time.Time
	Type      StepType
	Error     string
	Input     datatypes.JSONMap
	Output    datatypes.JSONMap
	Metadata  datatypes.JSONMap
	Tags      datatypes.JSONSlice[string]
	Name      string

	// Generation holds the serialized generation payload; Attachments the
	// serialized attachment list. Both are stored as opaque JSON documents.
	Generation  datatypes.JSON
	Attachments datatypes.JSON

	CreatedAt time.Time `gorm:"index;autoCreateTime"`

	Thread   Thread    `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
	Scores   []Score   `gorm:"foreignKey:StepID;constraint:OnDelete:CASCADE"`
	Feedback *Feedback `gorm:"foreignKey:StepID;constraint:OnDelete:CASCADE"`
}

func (s *Step) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
