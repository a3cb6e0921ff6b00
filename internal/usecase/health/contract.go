package health

import "context"

// EnginePinger checks search engine availability.
type EnginePinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger checks the dead-letter and checkpoint store.
type RedisPinger interface {
	Ping(ctx context.Context) error
}
