package repository

import "context"

// FlagRepository is a durable, process-wide boolean flag store. The
// orchestrator uses it for the batch in-progress marker: set when a batch
// starts, cleared when it finishes, and surfaced as an advisory warning on
// restart when found still set. It is never treated as resumable job state.
type FlagRepository interface {
	Set(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, key string) error
}

// BatchLocker prevents two batches from running at once. Closing the
// launching dialog does not cancel in-flight work; only new batches are
// blocked while the lock is held.
type BatchLocker interface {
	TryLock(ctx context.Context, key string) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
