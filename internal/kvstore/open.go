package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Open builds the store selected by driver: "memory", "file", "sqlite" or
// "postgres". The returned close function is never nil.
func Open(driver, dataDir, dsn string) (Store, func() error, error) {
	noop := func() error { return nil }

	switch driver {
	case "", "memory":
		return NewMemory(), noop, nil
	case "file":
		s, err := NewFile(dataDir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "sqlite", "sqlite3":
		if dsn == "" {
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return nil, noop, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(dataDir, "ikigai.db")
		}
		s, err := OpenGorm("sqlite3", dsn)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "postgres", "postgresql":
		if dsn == "" {
			return nil, noop, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		s, err := OpenGorm("postgres", dsn)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store driver %q", driver)
}
