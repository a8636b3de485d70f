package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository interface {
	CreateConversation(ctx context.Context, userID, title, modelTag string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (*model.Conversation, error)
	// ListConversations returns the user's conversations newest-first,
	// without their messages.
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	UpdateTitle(ctx context.Context, id, userID, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id, userID string) error
	// AppendTurn writes a user message and an assistant message in a single
	// transaction. With an empty conversationID it also creates the
	// conversation; either the whole turn commits or none of it does.
	AppendTurn(ctx context.Context, conversationID, userID, userText, assistantText, modelTag, title string) (*model.Conversation, error)
	// MessageStats returns the total message count and a per-model breakdown
	// across all conversations.
	MessageStats(ctx context.Context) (int, map[string]int, error)
}

type conversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepo{pool: pool}
}

const conversationColumns = `id, user_id, title, model, created_at, updated_at`

func scanConversation(row pgx.Row, c *model.Conversation) error {
	return row.Scan(&c.ID, &c.UserID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt)
}

func (r *conversationRepo) CreateConversation(ctx context.Context, userID, title, modelTag string) (*model.Conversation, error) {
	query := `
		INSERT INTO conversations (user_id, title, model)
		VALUES ($1, $2, $3)
		RETURNING ` + conversationColumns
	var c model.Conversation
	if err := scanConversation(r.pool.QueryRow(ctx, query, userID, title, modelTag), &c); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return &c, nil
}

func (r *conversationRepo) GetConversation(ctx context.Context, id, userID string) (*model.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`
	var c model.Conversation
	if err := scanConversation(r.pool.QueryRow(ctx, query, id, userID), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return &c, nil
}

func (r *conversationRepo) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := scanConversation(rows, &c); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return conversations, nil
}

func (r *conversationRepo) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

func (r *conversationRepo) UpdateTitle(ctx context.Context, id, userID, title string) (*model.Conversation, error) {
	query := `
		UPDATE conversations
		SET title = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
		RETURNING ` + conversationColumns
	var c model.Conversation
	if err := scanConversation(r.pool.QueryRow(ctx, query, title, id, userID), &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating conversation title: %w", err)
	}
	return &c, nil
}

func (r *conversationRepo) DeleteConversation(ctx context.Context, id, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepo) AppendTurn(ctx context.Context, conversationID, userID, userText, assistantText, modelTag, title string) (*model.Conversation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting turn transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var c model.Conversation
	if conversationID == "" {
		query := `
			INSERT INTO conversations (user_id, title, model)
			VALUES ($1, $2, $3)
			RETURNING ` + conversationColumns
		if err := scanConversation(tx.QueryRow(ctx, query, userID, title, modelTag), &c); err != nil {
			return nil, fmt.Errorf("creating conversation for turn: %w", err)
		}
	} else {
		// Bumping updated_at doubles as the ownership check.
		query := `
			UPDATE conversations
			SET updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING ` + conversationColumns
		if err := scanConversation(tx.QueryRow(ctx, query, conversationID, userID), &c); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("locating conversation for turn: %w", err)
		}
	}

	const insertQ = `INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, insertQ, c.ID, model.MessageRoleUser, userText); err != nil {
		return nil, fmt.Errorf("appending user message: %w", err)
	}
	if _, err := tx.Exec(ctx, insertQ, c.ID, model.MessageRoleAssistant, assistantText); err != nil {
		return nil, fmt.Errorf("appending assistant message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing turn: %w", err)
	}
	return &c, nil
}

func (r *conversationRepo) MessageStats(ctx context.Context) (int, map[string]int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("counting messages: %w", err)
	}

	const q = `
		SELECT c.model, COUNT(m.id)
		FROM conversations c
		JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.model
	`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return 0, nil, fmt.Errorf("querying message stats: %w", err)
	}
	defer rows.Close()

	byModel := make(map[string]int)
	for rows.Next() {
		var tag string
		var count int
		if err := rows.Scan(&tag, &count); err != nil {
			return 0, nil, fmt.Errorf("scanning stats row: %w", err)
		}
		byModel[tag] = count
	}
	if err = rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterating stats rows: %w", err)
	}
	return total, byModel, nil
}
