package client

import (
	"net/url"
	"strings"

	"github.com/lib/pq"

	"github.com/dshills/sqlbatch/internal/config"
	"github.com/dshills/sqlbatch/internal/errors"
)

// flavor holds the invocation defaults for a known client.
type flavor struct {
	command    string
	args       []string
	preamble   string
	terminator string
	postamble  string
	// dsn is the connect identifier used when none is configured.
	dsn string
}

var flavors = map[string]flavor{
	config.FlavorSQLPlus: {
		command:    "sqlplus",
		args:       []string{"-S", "-L", "{user}/{password}@{database}"},
		preamble:   "WHENEVER SQLERROR EXIT FAILURE",
		terminator: ";",
		postamble:  "EXIT",
		dsn:        "localhost/ORCLPD1",
	},
	config.FlavorPsql: {
		command:    "psql",
		args:       []string{"--no-psqlrc", "--quiet", "-v", "ON_ERROR_STOP=1", "{conninfo}"},
		terminator: ";",
	},
	config.FlavorCustom: {},
}

// Conninfo turns a DSN into a libpq keyword/value connection string.
// postgres:// and postgresql:// URLs are converted; anything else is taken
// to be conninfo already. A password embedded in a URL is removed from the
// conninfo and returned separately so it never reaches the command line. A
// non-empty user is appended as the user keyword.
func Conninfo(dsn, user string) (info, password string, err error) {
	info = dsn
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, perr := url.Parse(dsn)
		if perr != nil {
			return "", "", errors.InvalidConfigf("invalid postgres dsn").WithDetail(perr.Error())
		}
		if u.User != nil {
			password, _ = u.User.Password()
			u.User = url.User(u.User.Username())
		}
		info, err = pq.ParseURL(u.String())
		if err != nil {
			return "", "", errors.InvalidConfigf("invalid postgres dsn").WithDetail(err.Error())
		}
	}
	if user != "" {
		if info != "" {
			info += " "
		}
		info += "user=" + quoteConninfo(user)
	}
	return info, password, nil
}

// quoteConninfo quotes a conninfo value, escaping backslashes and quotes.
func quoteConninfo(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
