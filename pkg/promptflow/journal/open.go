package journal

import "fmt"

// Open creates a store by driver name: "memory", "sqlite" (dsn is a file
// path) or "redis" (dsn is a redis:// URL). An empty driver means memory.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if dsn == "" {
			return nil, fmt.Errorf("journal driver sqlite: empty dsn")
		}
		return NewSQLiteStore(dsn)
	case "redis":
		if dsn == "" {
			return nil, fmt.Errorf("journal driver redis: empty dsn")
		}
		return NewRedisStore(dsn)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", driver)
	}
}
