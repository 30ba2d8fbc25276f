package store

import (
	"context"
	"fmt"
	"time"

	"hiraku/types"
)

func (p *PostgresStore) CreateSession(ctx context.Context, tenant, title string) (int64, error) {
	if title == "" {
		title = "New Chat"
	}
	now := time.Now().UTC()
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO chat_sessions (tenant, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $3) RETURNING id`,
		tenant, title, now,
	).Scan(&id)
	return id, err
}

func (p *PostgresStore) SaveChatMessage(ctx context.Context, msg types.ChatMessage) error {
	if msg.SessionID == 0 {
		return fmt.Errorf("session id is required")
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO chat_messages (tenant, session_id, role, content, timestamp)
		 SELECT $1, id, $3, $4, $5 FROM chat_sessions WHERE id = $2 AND tenant = $1`,
		msg.Tenant, msg.SessionID, msg.Role, msg.Content, ts,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %d does not belong to tenant %s: %w", msg.SessionID, msg.Tenant, ErrNotFound)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`, ts, msg.SessionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *PostgresStore) GetChatHistory(ctx context.Context, tenant string, sessionID int64, limit int) ([]types.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, tenant, session_id, role, content, timestamp
		 FROM chat_messages
		 WHERE tenant = $1 AND session_id = $2
		 ORDER BY timestamp ASC, id ASC
		 LIMIT $3`,
		tenant, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.Tenant, &m.SessionID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
