package topogo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/da99/topogo/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

/*
Runs against the database named by TOPOGO_TEST_URL, falling back to
DATABASE_URL. Skipped when neither is set. The test table is dropped and
recreated, see `topogo reset-test-db`.
*/
type IntegrationSuite struct {
	suite.Suite

	url   string
	table string

	ctx   context.Context
	mgr   *Manager
	posts *Table
}

type testPost struct {
	Id        int64      `db:"id"`
	Name      string     `db:"name"`
	Body      *string    `db:"body"`
	OwnerId   *int64     `db:"owner_id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
	TrashedAt *time.Time `db:"trashed_at"`
}

func TestIntegration(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	url := cfg.TestDatabaseURL()
	if url == `` {
		t.Skip(`set TOPOGO_TEST_URL or DATABASE_URL to run integration tests`)
	}

	suite.Run(t, &IntegrationSuite{url: url, table: cfg.TestTable})
}

func (s *IntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	mgr, err := Open(Options{URL: s.url, Logger: discardLogger()})
	s.Require().NoError(err)
	s.mgr = mgr
	s.posts = mgr.Table(s.table)

	s.Require().NoError(s.posts.Drop(s.ctx))
	_, err = s.posts.Run(s.ctx, `
CREATE TABLE @table (
	id $id_type,
	name TEXT NOT NULL UNIQUE,
	body TEXT NULL,
	owner_id INTEGER NULL,
	$created_at,
	$updated_at,
	$trashed_at
)`, nil)
	s.Require().NoError(err)
}

func (s *IntegrationSuite) TearDownSuite() {
	if s.mgr == nil {
		return
	}
	_ = s.posts.Drop(s.ctx)
	s.Require().NoError(s.mgr.Close())
}

func (s *IntegrationSuite) SetupTest() {
	_, err := s.posts.DeleteAll(s.ctx)
	s.Require().NoError(err)
}

func (s *IntegrationSuite) create(name string) testPost {
	row, err := s.posts.Create(s.ctx, Doc{{`name`, name}})
	s.Require().NoError(err)

	var post testPost
	s.Require().NoError(DecodeRow(row, &post))
	return post
}

func (s *IntegrationSuite) TestCreateAndRead() {
	row, err := s.posts.Create(s.ctx, Doc{{`name`, `first`}, {`body`, `hello`}})
	s.Require().NoError(err)

	var created testPost
	s.Require().NoError(DecodeRow(row, &created))
	s.NotZero(created.Id)
	s.Equal(`first`, created.Name)
	s.Require().NotNil(created.Body)
	s.Equal(`hello`, *created.Body)
	s.False(created.CreatedAt.IsZero())
	s.Nil(created.TrashedAt)

	row, err = s.posts.ReadByID(s.ctx, created.Id)
	s.Require().NoError(err)
	s.Equal(`first`, row[`name`])

	row, err = s.posts.ReadByID(s.ctx, created.Id+1000)
	s.Require().NoError(err)
	s.Nil(row)

	rows, err := s.posts.ReadList(s.ctx, Doc{{`body`, `hello`}})
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *IntegrationSuite) TestCreateReturning() {
	row, err := s.posts.Create(s.ctx, Doc{{`name`, `ret`}, {ReturningKey, `id, name`}})
	s.Require().NoError(err)
	s.Len(row, 2)
	s.Equal(`ret`, row[`name`])
}

func (s *IntegrationSuite) TestUpdate() {
	post := s.create(`before`)

	row, err := s.posts.UpdateByID(s.ctx, post.Id, Doc{{`name`, `after`}})
	s.Require().NoError(err)
	s.Equal(`after`, row[`name`])

	rows, err := s.posts.UpdateAndStamp(s.ctx, Doc{{`id`, []int64{post.Id}}}, Doc{{`body`, `x`}})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)

	var updated testPost
	s.Require().NoError(DecodeRow(rows[0], &updated))
	s.NotNil(updated.UpdatedAt)
}

func (s *IntegrationSuite) TestTrashAndUntrash() {
	post := s.create(`trash`)

	row, err := s.posts.Trash(s.ctx, post.Id)
	s.Require().NoError(err)
	s.NotNil(row[`trashed_at`])

	row, err = s.posts.Untrash(s.ctx, post.Id)
	s.Require().NoError(err)
	s.Nil(row[`trashed_at`])

	rows, err := s.posts.TrashList(s.ctx, Doc{{`name`, `trash`}})
	s.Require().NoError(err)
	s.Equal([]Row{{`id`: post.Id}}, rows)
}

func (s *IntegrationSuite) TestDeleteTrashed() {
	old := s.create(`old`)
	recent := s.create(`recent`)

	_, err := s.posts.UpdateByID(s.ctx, old.Id, Doc{{`trashed_at`, RawOf(NowMinus(`3 days`))}})
	s.Require().NoError(err)
	_, err = s.posts.Trash(s.ctx, recent.Id)
	s.Require().NoError(err)

	rows, err := s.posts.DeleteTrashed(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(old.Id, rows[0][`id`])

	row, err := s.posts.ReadByID(s.ctx, recent.Id)
	s.Require().NoError(err)
	s.NotNil(row)
}

func (s *IntegrationSuite) TestDuplicate() {
	s.create(`dup`)

	errTaken := errors.New(`name taken`)
	var column string
	_, err := s.posts.OnDuplicate(`name`, func(col string) error {
		column = col
		return errTaken
	}).Create(s.ctx, Doc{{`name`, `dup`}})
	s.ErrorIs(err, errTaken)
	s.Equal(`name`, column)

	_, err = s.posts.Create(s.ctx, Doc{{`name`, `dup`}})
	s.ErrorIs(err, ErrDuplicate)
}

func (s *IntegrationSuite) TestQueryBuilder() {
	s.create(`a`)
	s.create(`b`)
	s.create(`c`)

	res, err := s.posts.Exec(s.ctx, s.posts.Select().
		Where(`.name = $1`, `a`).
		Or(`.name = $1`, `b`))
	s.Require().NoError(err)
	s.Equal(CommandSelect, res.Command)

	var posts []testPost
	s.Require().NoError(DecodeRows(res.Rows, &posts))
	s.Len(posts, 2)

	res, err = s.posts.Run(s.ctx, `SELECT name FROM @table WHERE name IN @names ORDER BY name`, Doc{
		{`names`, []string{`b`, `c`}},
	})
	s.Require().NoError(err)
	s.Equal([]Row{{`name`: `b`}, {`name`: `c`}}, res.Rows)

	res, err = s.posts.Exec(s.ctx, s.posts.Select().Limit(2, 1))
	s.Require().NoError(err)
	s.Len(res.Rows, 1)
}

func (s *IntegrationSuite) TestSchema() {
	tables, err := s.mgr.ListTables(s.ctx, ``)
	s.Require().NoError(err)
	s.Contains(tables, s.table)

	schema, err := s.mgr.DescribeTables(s.ctx, ``)
	s.Require().NoError(err)
	s.Equal(
		[]string{`id`, `name`, `body`, `owner_id`, `created_at`, `updated_at`, `trashed_at`},
		schema[s.table],
	)

	s.Equal(`trashed_at IS NULL`, s.posts.Readable(nil).Text)

	owner := int64(42)
	_, err = s.posts.Create(s.ctx, Doc{{`name`, `mine`}, {`owner_id`, owner}})
	s.Require().NoError(err)
	s.create(`theirs`)

	res, err := s.posts.Exec(s.ctx, s.posts.Select().WhereRaw(s.posts.Readable(owner)))
	s.Require().NoError(err)
	s.Require().Len(res.Rows, 1)
	s.Equal(`mine`, res.Rows[0][`name`])
}
