package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"portalx/internal/channels/models"
	"portalx/pkg/platform/sentinel"
)

const channelColumns = `id, name, link, COALESCE(telegram_id, ''), category, COALESCE(state, ''),
	COALESCE(description, ''), COALESCE(image_url, ''), COALESCE(bot_link, ''), user_id,
	is_premium, members, views, clicks, status, created_at, updated_at`

// PostgresStore persists channels in the channels table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, channel *models.Channel) (*models.Channel, error) {
	query := `
		INSERT INTO channels
			(name, link, telegram_id, category, state, description, image_url, bot_link,
			 user_id, is_premium, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
			NULLIF($8, ''), $9, $10, $11)
		RETURNING ` + channelColumns

	row := s.pool.QueryRow(ctx, query,
		channel.Name, channel.Link, channel.TelegramID, channel.Category, channel.State,
		channel.Description, channel.ImageURL, channel.BotLink,
		channel.UserID, channel.IsPremium, channel.Status,
	)
	stored, err := scanChannel(row)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Channel, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	c, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find channel: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Channel, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + channelColumns + ` FROM channels WHERE 1=1`)
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		fmt.Fprintf(&sb, clause, len(args))
	}

	if filter.Status != "" {
		add(" AND status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add(" AND category = $%d", filter.Category)
	}
	if filter.State != "" {
		add(" AND state = $%d", filter.State)
	}
	if filter.UserID != 0 {
		add(" AND user_id = $%d", filter.UserID)
	}
	if filter.Premium != nil {
		add(" AND is_premium = $%d", *filter.Premium)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		fmt.Fprintf(&sb, " AND (name ILIKE $%d OR description ILIKE $%d)", n, n)
	}

	sortBy := filter.Sort
	if !models.ValidSorts[sortBy] {
		sortBy = "members"
	}
	direction := "DESC"
	if filter.Order == "asc" {
		direction = "ASC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		offset := (filter.Page - 1) * filter.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		args = append(args, offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("list channels: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (s *PostgresStore) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM channels WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user channels: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE channels SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update channel status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) BulkUpdateStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE channels SET status = $1, updated_at = NOW() WHERE id = ANY($2)`, status, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk update channel status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementClicks(ctx context.Context, id int64) error {
	return s.increment(ctx, id, "clicks")
}

func (s *PostgresStore) IncrementViews(ctx context.Context, id int64) error {
	return s.increment(ctx, id, "views")
}

func (s *PostgresStore) increment(ctx context.Context, id int64, column string) error {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE channels SET %s = %s + 1 WHERE id = $1`, column, column), id)
	if err != nil {
		return fmt.Errorf("increment channel %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UserTotals(ctx context.Context, userID int64) (int64, int64, int64, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(members), 0), COALESCE(SUM(views), 0)
		FROM channels
		WHERE user_id = $1 AND status = 'active'`

	var channels, members, views int64
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&channels, &members, &views); err != nil {
		return 0, 0, 0, fmt.Errorf("user channel totals: %w", err)
	}
	return channels, members, views, nil
}

func (s *PostgresStore) PlatformTotals(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM channels GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("platform channel totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("platform channel totals: %w", err)
		}
		totals["channels_"+status] = count
	}
	return totals, rows.Err()
}

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var c models.Channel
	err := row.Scan(
		&c.ID, &c.Name, &c.Link, &c.TelegramID, &c.Category, &c.State,
		&c.Description, &c.ImageURL, &c.BotLink, &c.UserID,
		&c.IsPremium, &c.Members, &c.Views, &c.Clicks, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
