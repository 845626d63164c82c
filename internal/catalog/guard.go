package catalog

import (
	"net/url"
	"strings"
)

// Guard decides once, from environment values, whether the catalog store is
// usable. It routes every data operation: unconfigured reads serve the
// fallback catalog, unconfigured writes are rejected with a
// ConfigurationError.
type Guard struct {
	dsn      string
	writeKey string
}

// NewGuard builds a guard from the catalog DSN and the admin write key.
func NewGuard(dsn, writeKey string) Guard {
	return Guard{dsn: strings.TrimSpace(dsn), writeKey: strings.TrimSpace(writeKey)}
}

// Configured reports whether both the DSN and the write key pass the shape
// checks. The DSN must use the sqlite scheme with a non-empty database
// path, e.g. sqlite://furnistore.db.
func (g Guard) Configured() bool {
	return g.writeKey != "" && g.Path() != ""
}

// Path extracts the database file path from the DSN, or "" when the DSN is
// malformed.
func (g Guard) Path() string {
	if g.dsn == "" {
		return ""
	}
	u, err := url.Parse(g.dsn)
	if err != nil {
		return ""
	}
	if u.Scheme != "sqlite" {
		return ""
	}
	// sqlite://file.db parses the file name into Host; sqlite:///abs/path
	// puts it in Path.
	p := u.Host + u.Path
	if p == "" || !strings.HasSuffix(p, ".db") {
		return ""
	}
	return p
}

// WriteKey is the admin token required on write endpoints.
func (g Guard) WriteKey() string { return g.writeKey }
