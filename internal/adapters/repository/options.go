package repository

import "github.com/okian/dengue/pkg/logger"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for schema and write diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxOpenConns bounds concurrent connections. SQLite serialises writers,
// so values above one only help readers.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxOpen = n
		}
	}
}
