package cache

import (
	"context"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string, value interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const (
	// QuerySnapshotKeyPrefix caches the last gateway status snapshot per
	// transaction, so repeated manual reconciliation checks do not hammer
	// the gateway API.
	QuerySnapshotKeyPrefix = "gwquery"
	TicketKeyPrefix        = "ticket"
)
