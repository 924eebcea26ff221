package accesslogs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vaultclub/vault-api/internal/repos/accesslogs"
)

var _ accesslogs.AccessLogs = (*accessLogsRepo)(nil)

type accessLogsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accessLogsRepo {
	return &accessLogsRepo{db: db}
}

func (r *accessLogsRepo) Insert(ctx context.Context, row accesslogs.Row) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_logs (endpoint, user_id, ip_address, user_agent, status)
		VALUES ($1, $2, $3, $4, $5)
	`, row.Endpoint, row.UserID, row.IPAddress, row.UserAgent, row.Status)
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}

	return nil
}
