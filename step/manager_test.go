package step_test

import (
	"os"
	"testing"
	"time"

	"github.com/jcooky/go-din"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mytesting"
	"github.com/tracelit/tracelit/step"
)

type StepManagerTestSuite struct {
	mytesting.Suite

	manager step.Manager
	DB      *gorm.DB
}

func (s *StepManagerTestSuite) SetupTest() {
	os.Setenv("ENV_TEST_FILE", "../.env.test")
	s.Suite.SetupTest()

	s.manager = din.MustGetT[step.Manager](s.Container)
	s.DB = din.MustGet[*gorm.DB](s.Container, db.Key)
}

func (s *StepManagerTestSuite) TearDownTest() {
	s.Suite.TearDownTest()
}

func (s *StepManagerTestSuite) createThread(id string) {
	participant := entity.Participant{Identifier: "ingest-" + id}
	s.Require().NoError(s.DB.Create(&participant).Error)
	thread := entity.Thread{ID: id, ParticipantID: &participant.ID}
	s.Require().NoError(s.DB.Create(&thread).Error)
}

func (s *StepManagerTestSuite) TestUpsertInsertsStep() {
	s.createThread("th-1")

	stepType := "llm"
	name := "completion"
	start := time.Now().UTC().Add(-time.Second)
	created, err := s.manager.UpsertStep(s.Context, step.UpsertStepParams{
		Id:        "st-1",
		ThreadId:  "th-1",
		Type:      &stepType,
		Name:      &name,
		StartTime: &start,
		Input:     map[string]any{"prompt": "hi"},
		Generation: map[string]any{
			"model":      "gpt-4",
			"tokenCount": float64(42),
		},
	})
	s.Require().NoError(err)

	s.Equal("st-1", created.Id)
	s.Equal("th-1", created.ThreadId)
	s.Equal("llm", created.Type)
	s.Equal("completion", created.Name)
	s.Equal(map[string]any{"prompt": "hi"}, created.Input)
	s.Equal("gpt-4", created.Generation["model"])
}

func (s *StepManagerTestSuite) TestUpsertUpdatesOnlySuppliedFields() {
	s.createThread("th-2")

	stepType := "tool"
	name := "lookup"
	_, err := s.manager.UpsertStep(s.Context, step.UpsertStepParams{
		Id:       "st-2",
		ThreadId: "th-2",
		Type:     &stepType,
		Name:     &name,
		Input:    map[string]any{"q": "weather"},
	})
	s.Require().NoError(err)

	// A second ingestion event for the same step only carries the output;
	// earlier fields must survive.
	updated, err := s.manager.UpsertStep(s.Context, step.UpsertStepParams{
		Id:       "st-2",
		ThreadId: "th-2",
		Output:   map[string]any{"answer": "sunny"},
	})
	s.Require().NoError(err)

	s.Equal("lookup", updated.Name)
	s.Equal("tool", updated.Type)
	s.Equal(map[string]any{"q": "weather"}, updated.Input)
	s.Equal(map[string]any{"answer": "sunny"}, updated.Output)
}

func (s *StepManagerTestSuite) TestUpsertPersistsScores() {
	s.createThread("th-3")

	created, err := s.manager.UpsertStep(s.Context, step.UpsertStepParams{
		Id:       "st-3",
		ThreadId: "th-3",
		Scores: []step.ScorePayload{
			{Name: "relevance", Type: "AI", Value: 0.9},
		},
	})
	s.Require().NoError(err)

	s.Require().Len(created.Scores, 1)
	s.Equal("relevance", created.Scores[0].Name)
	s.Equal(0.9, created.Scores[0].Value)
	s.Require().NotNil(created.Scores[0].StepId)
	s.Equal("st-3", *created.Scores[0].StepId)
}

func (s *StepManagerTestSuite) TestUpsertRequiresIds() {
	_, err := s.manager.UpsertStep(s.Context, step.UpsertStepParams{Id: "st-x"})
	s.Require().ErrorIs(err, errors.ErrInvalidParams)

	_, err = s.manager.UpsertStep(s.Context, step.UpsertStepParams{ThreadId: "th-x"})
	s.Require().ErrorIs(err, errors.ErrInvalidParams)
}

func (s *StepManagerTestSuite) TestUpsertFailsWhenParentNeverArrives() {
	_, err := s.manager.UpsertStep(s.Context, step.UpsertStepParams{
		Id:       "st-orphan",
		ThreadId: "th-never",
	})
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func (s *StepManagerTestSuite) TestGetAndDelete() {
	s.createThread("th-4")

	_, err := s.manager.UpsertStep(s.Context, step.UpsertStepParams{
		Id:       "st-4",
		ThreadId: "th-4",
	})
	s.Require().NoError(err)

	found, err := s.manager.GetStepById(s.Context, "st-4")
	s.Require().NoError(err)
	s.Equal("st-4", found.Id)

	id, err := s.manager.DeleteStep(s.Context, "st-4")
	s.Require().NoError(err)
	s.Equal("st-4", id)

	_, err = s.manager.GetStepById(s.Context, "st-4")
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func TestStepManager(t *testing.T) {
	suite.Run(t, new(StepManagerTestSuite))
}
