package accesslogs

import (
	"context"

	"github.com/google/uuid"
)

// Row is one recorded API access. Writes are best effort; a failed insert
// must never fail the request it describes.
type Row struct {
	Endpoint  string
	UserID    uuid.NullUUID
	IPAddress string
	UserAgent string
	Status    int
}

type AccessLogs interface {
	Insert(ctx context.Context, row Row) error
}
