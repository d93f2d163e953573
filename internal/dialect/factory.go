package dialect

import "fmt"

// Driver names registered with database/sql by main.
const (
	DriverPQ  = "postgres" // github.com/lib/pq
	DriverPGX = "pgx"      // github.com/jackc/pgx/v5/stdlib
)

// GetDialect returns the Dialect for a database/sql driver name. CrateDB is
// only reachable through the PostgreSQL wire protocol, so other drivers are
// rejected.
func GetDialect(driver string) (Dialect, error) {
	switch driver {
	case DriverPQ, DriverPGX, "postgresql":
		return &CrateDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q: use %q or %q", driver, DriverPQ, DriverPGX)
	}
}

// Ensure interface implementation
var _ Dialect = (*CrateDialect)(nil)
