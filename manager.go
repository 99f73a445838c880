package topogo

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	DefaultMaxOpenConns = 5
	DefaultMaxIdleConns = 1
)

// Settings for `Open`.
type Options struct {
	// Connection URL of the default database. Alternate databases substitute
	// its path, see `ConnURL`.
	URL string

	// Pool sizes of every opened connection. Zero means the default.
	MaxOpenConns int
	MaxIdleConns int

	// Defaults to `NewLogger(false)`.
	Logger *slog.Logger
}

/*
Owns the connection pools, keyed by database name, and the column-schema cache.
Table Accessors are obtained from it:

	mgr, err := topogo.Open(topogo.Options{URL: os.Getenv(`DATABASE_URL`)})
	if err != nil {
		return err
	}
	defer mgr.Close()

	posts := mgr.Table(`posts`)

Pools are opened on first use. Safe for concurrent use. Cached columns are
never invalidated: call `Manager.DescribeTables` again after schema changes.
*/
type Manager struct {
	opts Options
	log  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	drivers map[string]Driver
	dbs     map[string]*sql.DB
	schema  map[string]map[string][]string
}

// Validates the options and returns a manager. No connection is opened yet.
func Open(opts Options) (*Manager, error) {
	if opts.URL != `` {
		_, err := url.Parse(opts.URL)
		if err != nil {
			return nil, errors.Wrap(err, `parsing database URL`)
		}
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = DefaultMaxOpenConns
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = DefaultMaxIdleConns
	}
	if opts.Logger == nil {
		opts.Logger = NewLogger(false)
	}

	return &Manager{
		opts:    opts,
		log:     opts.Logger,
		drivers: map[string]Driver{},
		dbs:     map[string]*sql.DB{},
		schema:  map[string]map[string][]string{},
	}, nil
}

/*
Returns a manager using the given driver for the default database. Pools for
other databases are still opened from `opts.URL`. Mostly for tests.
*/
func OpenWith(driver Driver, opts Options) (*Manager, error) {
	mgr, err := Open(opts)
	if err != nil {
		return nil, err
	}
	mgr.drivers[``] = driver
	return mgr, nil
}

// Returns the accessor for a table of the default database.
func (self *Manager) Table(name string) *Table { return self.TableIn(name, ``) }

// Returns the accessor for a table of another database on the same server.
func (self *Manager) TableIn(name, db string) *Table {
	return &Table{mgr: self, name: name, conn: db}
}

/*
Returns the driver for the database, opening its pool if needed. An empty name
means the default database.
*/
func (self *Manager) Conn(db string) (Driver, error) {
	self.mu.RLock()
	driver, ok := self.drivers[db]
	closed := self.closed
	self.mu.RUnlock()

	if closed {
		return nil, ErrClosed.during(`getting connection`)
	}
	if ok {
		return driver, nil
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	if self.closed {
		return nil, ErrClosed.during(`getting connection`)
	}
	if driver, ok := self.drivers[db]; ok {
		return driver, nil
	}

	if self.opts.URL == `` {
		return nil, ErrNoConn.during(`getting connection`).wrap(errors.Errorf(`no database URL for %q`, db))
	}

	connURL := self.opts.URL
	if db != `` {
		var err error
		connURL, err = ConnURL(self.opts.URL, db)
		if err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open(`postgres`, connURL)
	if err != nil {
		return nil, errors.Wrapf(err, `opening connection to %q`, db)
	}
	conn.SetMaxOpenConns(self.opts.MaxOpenConns)
	conn.SetMaxIdleConns(self.opts.MaxIdleConns)

	self.log.Debug(`opened pool`, `conn`, connName(db), `max_open`, self.opts.MaxOpenConns)

	driver = SqlDriver{Conn: conn}
	self.dbs[db] = conn
	self.drivers[db] = driver
	return driver, nil
}

// Closes every opened pool. Further calls fail with `ErrClosed`.
func (self *Manager) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.closed {
		return nil
	}
	self.closed = true

	var out error
	for key, conn := range self.dbs {
		err := conn.Close()
		if err != nil && out == nil {
			out = errors.Wrapf(err, `closing connection to %q`, connName(key))
		}
	}
	self.dbs = nil
	self.drivers = nil
	return out
}

// Logger given in `Options`.
func (self *Manager) Logger() *slog.Logger { return self.log }

/*
Executes a statement on the database, logging it at debug level and failures
at error level.
*/
func (self *Manager) Query(ctx context.Context, db string, text string, args []interface{}) (Result, error) {
	driver, err := self.Conn(db)
	if err != nil {
		return Result{}, err
	}

	self.log.Debug(`query`, `conn`, connName(db), `sql`, text, `args`, len(args))

	out, err := driver.Query(ctx, text, args)
	if err != nil {
		self.log.Error(`query failed`, `conn`, connName(db), `sql`, text, `err`, err)
		return out, err
	}
	return out, nil
}

/*
Replaces the path of the connection URL with the database name:

	ConnURL(`postgres://user@localhost:5432/main?sslmode=disable`, `other`)
	// postgres://user@localhost:5432/other?sslmode=disable
*/
func ConnURL(base, db string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return ``, errors.Wrap(err, `parsing database URL`)
	}
	parsed.Path = `/` + strings.TrimPrefix(db, `/`)
	parsed.RawPath = ``
	return parsed.String(), nil
}

func connName(db string) string {
	if db == `` {
		return `default`
	}
	return db
}
