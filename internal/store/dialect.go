package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// dialect captures the differences between the supported SQL engines.
// Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	name       string
	driverName string
	createDDL  string
	numbered   bool // $1, $2, ... instead of ?
}

var (
	postgresDialect = dialect{
		name:       types.DriverPostgres,
		driverName: "postgres",
		createDDL:  createTodosPostgres,
		numbered:   true,
	}
	sqliteDialect = dialect{
		name:       types.DriverSQLite,
		driverName: "sqlite",
		createDDL:  createTodosSQLite,
	}
)

// dialectFor returns the dialect for a driver name.
func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case types.DriverPostgres:
		return postgresDialect, nil
	case types.DriverSQLite:
		return sqliteDialect, nil
	default:
		return dialect{}, types.ErrDriverUnknown
	}
}

// rebind rewrites ? placeholders into the dialect's native form.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// dsn builds the data source name handed to sql.Open.
func (d dialect) dsn(cfg types.Config) string {
	if d.name == types.DriverSQLite {
		return cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = types.DefaultSSLMode
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}
