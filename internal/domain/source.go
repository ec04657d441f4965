package domain

import "context"

// Source produces the data that backups capture. Fetch is usable as a DataProvider.
type Source interface {
	Fetch(ctx context.Context) (any, error)
	GetName() string
	GetType() string
	Ping(ctx context.Context) error
}
