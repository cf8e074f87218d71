package postgres_test

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/suite"
	usertoken "github.com/tokenmarket/usertoken"
	"github.com/tokenmarket/usertoken/postgres"
)

type StoreTestSuite struct {
	suite.Suite

	db    *postgres.DB
	store *postgres.UserTokenStore
}

func TestRunSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (suite *StoreTestSuite) SetupSuite() {
	err := godotenv.Load("../.env")
	var pe *fs.PathError
	if err != nil && !errors.As(err, &pe) {
		suite.Require().FailNow(err.Error())
	}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		suite.T().Skip("TEST_DATABASE_URL not set")
	}

	suite.db, err = postgres.Connect(
		&postgres.CxnConfig{IsTestDB: true, URL: url},
		postgres.Migrations,
		usertoken.Testing,
	)
	suite.Require().Nil(err)

	suite.store = postgres.NewUserTokenStore(suite.db)
}

func (suite *StoreTestSuite) TearDownTest() {
	suite.Require().Nil(suite.db.Exec("TRUNCATE user_tokens RESTART IDENTITY;"))
}
