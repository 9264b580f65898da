package storage_test

import (
	"os"
	"testing"

	"github.com/jcooky/go-din"
	"github.com/stretchr/testify/suite"

	"github.com/tracelit/tracelit/errors"
	"github.com/tracelit/tracelit/internal/mytesting"
	"github.com/tracelit/tracelit/storage"
)

type StorageTestSuite struct {
	mytesting.Suite

	presigner storage.Presigner
}

func (s *StorageTestSuite) SetupTest() {
	os.Setenv("ENV_TEST_FILE", "../.env.test")
	s.Suite.SetupTest()

	s.presigner = din.MustGetT[storage.Presigner](s.Container)
}

func (s *StorageTestSuite) TearDownTest() {
	s.Suite.TearDownTest()
}

func (s *StorageTestSuite) TestDisabledWithoutBucket() {
	_, err := s.presigner.PresignGetObject(s.Context, "thread-1/files/a.txt")
	s.Require().ErrorIs(err, errors.ErrInvalidConfig)

	desc, err := s.presigner.PresignPostObject(s.Context, "thread-1/files/a.txt", "text/plain")
	s.Require().ErrorIs(err, errors.ErrInvalidConfig)
	s.Require().Nil(desc)
}

func TestStorage(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}
