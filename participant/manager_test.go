package participant_test

import (
	"os"
	"testing"

	"github.com/jcooky/go-din"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mytesting"
	"github.com/tracelit/tracelit/participant"
)

type ParticipantManagerTestSuite struct {
	mytesting.Suite

	manager participant.Manager
	DB      *gorm.DB
}

func (s *ParticipantManagerTestSuite) SetupTest() {
	os.Setenv("ENV_TEST_FILE", "../.env.test")
	s.Suite.SetupTest()

	s.manager = din.MustGetT[participant.Manager](s.Container)
	s.DB = din.MustGet[*gorm.DB](s.Container, db.Key)
}

func (s *ParticipantManagerTestSuite) TearDownTest() {
	s.Suite.TearDownTest()
}

func (s *ParticipantManagerTestSuite) TestCreateAndGet() {
	created, err := s.manager.CreateParticipant(s.Context, "alice", map[string]any{"team": "ml"})
	s.Require().NoError(err)
	s.NotEmpty(created.Id)
	s.Equal("alice", created.Identifier)

	byId, err := s.manager.GetParticipant(s.Context, created.Id, "")
	s.Require().NoError(err)
	s.Equal(created.Id, byId.Id)

	byIdentifier, err := s.manager.GetParticipant(s.Context, "", "alice")
	s.Require().NoError(err)
	s.Equal(created.Id, byIdentifier.Id)
	s.Equal(map[string]any{"team": "ml"}, byIdentifier.Metadata)
}

func (s *ParticipantManagerTestSuite) TestCreateRejectsDuplicateIdentifier() {
	_, err := s.manager.CreateParticipant(s.Context, "bob", nil)
	s.Require().NoError(err)

	_, err = s.manager.CreateParticipant(s.Context, "bob", nil)
	s.Require().ErrorIs(err, errors.ErrConflict)
}

func (s *ParticipantManagerTestSuite) TestCreateRequiresIdentifier() {
	_, err := s.manager.CreateParticipant(s.Context, "", nil)
	s.Require().ErrorIs(err, errors.ErrInvalidParams)
}

func (s *ParticipantManagerTestSuite) TestGetRequiresIdOrIdentifier() {
	_, err := s.manager.GetParticipant(s.Context, "", "")
	s.Require().ErrorIs(err, errors.ErrInvalidParams)

	_, err = s.manager.GetParticipant(s.Context, "nope", "")
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func (s *ParticipantManagerTestSuite) TestUpdate() {
	created, err := s.manager.CreateParticipant(s.Context, "carol", map[string]any{"plan": "free"})
	s.Require().NoError(err)

	identifier := "carol-2"
	updated, err := s.manager.UpdateParticipant(s.Context, created.Id, &identifier, map[string]any{"plan": "pro"})
	s.Require().NoError(err)
	s.Equal("carol-2", updated.Identifier)
	s.Equal(map[string]any{"plan": "pro"}, updated.Metadata)

	// Nil fields leave the stored values alone.
	kept, err := s.manager.UpdateParticipant(s.Context, created.Id, nil, nil)
	s.Require().NoError(err)
	s.Equal("carol-2", kept.Identifier)
	s.Equal(map[string]any{"plan": "pro"}, kept.Metadata)

	_, err = s.manager.UpdateParticipant(s.Context, "missing", &identifier, nil)
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func (s *ParticipantManagerTestSuite) TestDeleteIsTolerant() {
	created, err := s.manager.CreateParticipant(s.Context, "dave", nil)
	s.Require().NoError(err)

	s.Require().NoError(s.manager.DeleteParticipant(s.Context, created.Id))

	_, err = s.manager.GetParticipant(s.Context, created.Id, "")
	s.Require().ErrorIs(err, errors.ErrNotFound)

	// Deleting an unknown id is not an error.
	s.Require().NoError(s.manager.DeleteParticipant(s.Context, created.Id))
}

func TestParticipantManager(t *testing.T) {
	suite.Run(t, new(ParticipantManagerTestSuite))
}
