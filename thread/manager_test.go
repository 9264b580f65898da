package thread_test

import (
	"os"
	"testing"
	"time"

	"github.com/jcooky/go-din"
	"github.com/stretchr/testify/suite"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tracelit/tracelit/cursor"
	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/db"
	"github.com/tracelit/tracelit/internal/mytesting"
	"github.com/tracelit/tracelit/thread"
)

type ThreadManagerTestSuite struct {
	mytesting.Suite

	threadManager thread.Manager
	DB            *gorm.DB
}

func (s *ThreadManagerTestSuite) SetupTest() {
	os.Setenv("ENV_TEST_FILE", "../.env.test")
	s.Suite.SetupTest()

	s.threadManager = din.MustGetT[thread.Manager](s.Container)
	s.DB = din.MustGet[*gorm.DB](s.Container, db.Key)
}

func (s *ThreadManagerTestSuite) TearDownTest() {
	s.Suite.TearDownTest()
}

func (s *ThreadManagerTestSuite) createParticipant(identifier string) *entity.Participant {
	participant := entity.Participant{Identifier: identifier}
	s.Require().NoError(s.DB.Create(&participant).Error)
	return &participant
}

func (s *ThreadManagerTestSuite) createThread(id string, createdAt time.Time, participantId string, mutate ...func(*entity.Thread)) *entity.Thread {
	t := entity.Thread{
		ID:            id,
		CreatedAt:     createdAt,
		ParticipantID: &participantId,
	}
	for _, fn := range mutate {
		fn(&t)
	}
	s.Require().NoError(s.DB.Create(&t).Error)
	return &t
}

func (s *ThreadManagerTestSuite) TestPaginationFirstAndAfter() {
	participant := s.createParticipant("alice")
	now := time.Now().UTC()

	// Ids are uuids in production and carry no ordering relation to
	// creation time.
	s.createThread("bbbb", now.Add(-time.Hour), participant.ID)
	s.createThread("aaaa", now, participant.ID)

	first := 1
	page, err := s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{First: &first})
	s.Require().NoError(err)

	s.Require().Len(page.Edges, 1)
	s.Equal("aaaa", page.Edges[0].Node.Id)
	s.Equal(1, page.TotalCount)
	s.True(page.PageInfo.HasNextPage)
	s.False(page.PageInfo.HasPreviousPage)
	s.Require().NotNil(page.PageInfo.EndCursor)
	s.Equal(cursor.Encode(cursor.KindThread, "aaaa"), *page.PageInfo.EndCursor)

	after := *page.PageInfo.EndCursor
	page, err = s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{First: &first, After: &after})
	s.Require().NoError(err)

	s.Require().Len(page.Edges, 1)
	s.Equal("bbbb", page.Edges[0].Node.Id)
	s.False(page.PageInfo.HasNextPage)
	s.True(page.PageInfo.HasPreviousPage)
}

func (s *ThreadManagerTestSuite) TestPaginationSkipAndOrder() {
	participant := s.createParticipant("bob")
	now := time.Now().UTC()

	s.createThread("t1", now.Add(-2*time.Hour), participant.ID)
	s.createThread("t2", now.Add(-time.Hour), participant.ID)
	s.createThread("t3", now, participant.ID)

	first, skip := 2, 1
	page, err := s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		First:   &first,
		Skip:    &skip,
		OrderBy: &thread.OrderBy{Column: thread.OrderByCreatedAt, Direction: thread.OrderAsc},
	})
	s.Require().NoError(err)

	s.Require().Len(page.Edges, 2)
	s.Equal("t2", page.Edges[0].Node.Id)
	s.Equal("t3", page.Edges[1].Node.Id)
}

func (s *ThreadManagerTestSuite) TestPaginationRejectsInvalidOrder() {
	_, err := s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		OrderBy: &thread.OrderBy{Column: "karma", Direction: thread.OrderAsc},
	})
	s.Require().ErrorIs(err, errors.ErrInvalidParams)

	_, err = s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		OrderBy: &thread.OrderBy{Column: thread.OrderByCreatedAt, Direction: "SIDEWAYS"},
	})
	s.Require().ErrorIs(err, errors.ErrInvalidParams)
}

func (s *ThreadManagerTestSuite) TestFilterByEnvironmentAndTags() {
	participant := s.createParticipant("carol")
	now := time.Now().UTC()

	s.createThread("prod-1", now.Add(-time.Minute), participant.ID, func(t *entity.Thread) {
		t.Environment = "production"
		t.Tags = []string{"checkout", "beta"}
	})
	s.createThread("stag-1", now, participant.ID, func(t *entity.Thread) {
		t.Environment = "staging"
		t.Tags = []string{"checkout"}
	})

	envFilter, err := thread.NewFilter(thread.FieldEnvironment, thread.OpEq, "production")
	s.Require().NoError(err)

	page, err := s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		Filters: []thread.Filter{envFilter},
	})
	s.Require().NoError(err)
	s.Require().Len(page.Edges, 1)
	s.Equal("prod-1", page.Edges[0].Node.Id)

	tagFilter, err := thread.NewFilter(thread.FieldTags, thread.OpIn, []string{"beta"})
	s.Require().NoError(err)

	page, err = s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		Filters: []thread.Filter{tagFilter},
	})
	s.Require().NoError(err)
	s.Require().Len(page.Edges, 1)
	s.Equal("prod-1", page.Edges[0].Node.Id)
}

func (s *ThreadManagerTestSuite) TestFilterByParticipantIdentifier() {
	alice := s.createParticipant("alice")
	bob := s.createParticipant("bob")
	now := time.Now().UTC()

	s.createThread("a-1", now.Add(-time.Minute), alice.ID)
	s.createThread("b-1", now, bob.ID)

	filter, err := thread.NewFilter(thread.FieldParticipantIdentifiers, thread.OpIn, []string{"alice"})
	s.Require().NoError(err)

	page, err := s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		Filters: []thread.Filter{filter},
	})
	s.Require().NoError(err)
	s.Require().Len(page.Edges, 1)
	s.Equal("a-1", page.Edges[0].Node.Id)
}

func (s *ThreadManagerTestSuite) TestFilterAndOrderByTokenCount() {
	participant := s.createParticipant("dora")
	now := time.Now().UTC()
	s.createThread("th-small", now.Add(-time.Hour), participant.ID)
	s.createThread("th-big", now, participant.ID)

	steps := []entity.Step{
		{ID: "st-small", ThreadID: "th-small", Type: entity.StepTypeLLM, Generation: datatypes.JSON([]byte(`{"tokenCount": 10}`))},
		{ID: "st-big-1", ThreadID: "th-big", Type: entity.StepTypeLLM, Generation: datatypes.JSON([]byte(`{"tokenCount": 40}`))},
		{ID: "st-big-2", ThreadID: "th-big", Type: entity.StepTypeLLM, Generation: datatypes.JSON([]byte(`{"tokenCount": 2}`))},
	}
	for i := range steps {
		s.Require().NoError(s.DB.Create(&steps[i]).Error)
	}

	filter, err := thread.NewFilter(thread.FieldTokenCount, thread.OpGte, 42)
	s.Require().NoError(err)

	page, err := s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		Filters: []thread.Filter{filter},
	})
	s.Require().NoError(err)
	s.Require().Len(page.Edges, 1)
	s.Equal("th-big", page.Edges[0].Node.Id)

	page, err = s.threadManager.GetThreads(s.Context, &thread.ListThreadsRequest{
		OrderBy: &thread.OrderBy{Column: thread.OrderByTokenCount, Direction: thread.OrderAsc},
	})
	s.Require().NoError(err)
	s.Require().Len(page.Edges, 2)
	s.Equal("th-small", page.Edges[0].Node.Id)
	s.Equal("th-big", page.Edges[1].Node.Id)
}

func (s *ThreadManagerTestSuite) TestGetThreadByIdAcceptsCursorToken() {
	participant := s.createParticipant("dave")
	s.createThread("th-42", time.Now().UTC(), participant.ID)

	found, err := s.threadManager.GetThreadById(s.Context, cursor.Encode(cursor.KindThread, "th-42"))
	s.Require().NoError(err)
	s.Equal("th-42", found.Id)

	_, err = s.threadManager.GetThreadById(s.Context, "missing")
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func (s *ThreadManagerTestSuite) TestUpsertCreatesAndMergesMetadata() {
	participant := s.createParticipant("erin")

	name := "first run"
	created, err := s.threadManager.UpsertThread(s.Context, thread.UpsertThreadParams{
		Id:            "th-meta",
		Name:          &name,
		ParticipantId: &participant.ID,
		Metadata:      map[string]any{"a": "1"},
		Tags:          []string{"one"},
	})
	s.Require().NoError(err)
	s.Require().NotNil(created)
	s.Equal("first run", created.Name)
	s.Equal(map[string]any{"a": "1"}, created.Metadata)

	// Default policy merges key by key; tags and scalars replace.
	updated, err := s.threadManager.UpsertThread(s.Context, thread.UpsertThreadParams{
		Id:       "th-meta",
		Metadata: map[string]any{"b": "2"},
		Tags:     []string{"two"},
	})
	s.Require().NoError(err)
	s.Equal(map[string]any{"a": "1", "b": "2"}, updated.Metadata)
	s.Equal([]string{"two"}, updated.Tags)
	s.Equal("first run", updated.Name)

	replaced, err := s.threadManager.UpsertThread(s.Context, thread.UpsertThreadParams{
		Id:             "th-meta",
		Metadata:       map[string]any{"c": "3"},
		MetadataPolicy: thread.MetadataReplace,
	})
	s.Require().NoError(err)
	s.Equal(map[string]any{"c": "3"}, replaced.Metadata)
}

func (s *ThreadManagerTestSuite) TestUpsertSkipsUnknownThreadWithoutParticipant() {
	result, err := s.threadManager.UpsertThread(s.Context, thread.UpsertThreadParams{
		Id:       "ghost",
		Metadata: map[string]any{"a": "1"},
	})
	s.Require().NoError(err)
	s.Nil(result)

	_, err = s.threadManager.GetThreadById(s.Context, "ghost")
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func (s *ThreadManagerTestSuite) TestUpsertRequiresId() {
	_, err := s.threadManager.UpsertThread(s.Context, thread.UpsertThreadParams{})
	s.Require().ErrorIs(err, errors.ErrInvalidParams)
}

func (s *ThreadManagerTestSuite) TestUpsertRejectsUnknownMetadataPolicy() {
	participant := s.createParticipant("grace")

	_, err := s.threadManager.UpsertThread(s.Context, thread.UpsertThreadParams{
		Id:             "th-policy",
		ParticipantId:  &participant.ID,
		Metadata:       map[string]any{"a": "1"},
		MetadataPolicy: thread.MetadataPolicy("overwrite"),
	})
	s.Require().ErrorIs(err, errors.ErrInvalidParams)

	_, err = s.threadManager.GetThreadById(s.Context, "th-policy")
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func (s *ThreadManagerTestSuite) TestDeleteThreadCascades() {
	participant := s.createParticipant("frank")
	s.createThread("th-del", time.Now().UTC(), participant.ID)

	step := entity.Step{ID: "st-del", ThreadID: "th-del", Type: entity.StepTypeRun}
	s.Require().NoError(s.DB.Create(&step).Error)

	id, err := s.threadManager.DeleteThread(s.Context, "th-del")
	s.Require().NoError(err)
	s.Equal("th-del", id)

	var count int64
	s.Require().NoError(s.DB.Model(&entity.Step{}).Where("thread_id = ?", "th-del").Count(&count).Error)
	s.Equal(int64(0), count)

	_, err = s.threadManager.DeleteThread(s.Context, "th-del")
	s.Require().ErrorIs(err, errors.ErrNotFound)
}

func TestThreadManager(t *testing.T) {
	suite.Run(t, new(ThreadManagerTestSuite))
}
