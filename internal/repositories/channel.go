package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
)

const channelColumns = `id, login, type, name, urls, archive_url, chat_url, image, title, category, intent, mature, live, viewers, thumbnail`

// ChannelRepository persists [models.Channel] rows.
type ChannelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Channels lists channels of typ ordered by ID, or every channel when typ is empty.
func (r *ChannelRepository) Channels(ctx context.Context, typ string) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE (? = '' OR type = ?) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, typ, typ)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channels: %w", err)
	}
	return channels, nil
}

func (r *ChannelRepository) Channel(ctx context.Context, id int64) (*models.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if err != nil {
		return nil, mapError(err, shared.KindChannel, id)
	}
	return ch, nil
}

func (r *ChannelRepository) ChannelByLogin(ctx context.Context, login, typ string) (*models.Channel, error) {
	return r.byLogin(ctx, r.db, login, typ)
}

func (r *ChannelRepository) byLogin(ctx context.Context, q queryer, login, typ string) (*models.Channel, error) {
	row := q.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE login = ? AND type = ?`, login, typ)
	ch, err := scanChannel(row)
	if err != nil {
		return nil, mapError(err, shared.KindChannel, login)
	}
	return ch, nil
}

// AddChannel inserts ch and sets its ID.
func (r *ChannelRepository) AddChannel(ctx context.Context, ch *models.Channel) error {
	args, err := channelArgs(ch)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO channels (login, type, name, urls, archive_url, chat_url, image, title, category, intent, mature, live, viewers, thumbnail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query, append([]any{ch.Login, ch.Type}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", mapError(err, shared.KindChannel, ch.Login))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get channel id: %w", err)
	}
	ch.ID = id
	return nil
}

// UpdateChannel overwrites every mutable column of the row with ch's ID.
func (r *ChannelRepository) UpdateChannel(ctx context.Context, ch *models.Channel) error {
	args, err := channelArgs(ch)
	if err != nil {
		return err
	}

	query := `
		UPDATE channels
		SET name = ?, urls = ?, archive_url = ?, chat_url = ?, image = ?, title = ?, category = ?, intent = ?,
			mature = ?, live = ?, viewers = ?, thumbnail = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, append(args, ch.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return affected(res, shared.KindChannel, ch.ID)
}

func (r *ChannelRepository) RemoveChannel(ctx context.Context, id int64) error {
	return r.delete(ctx, r.db, id)
}

func (r *ChannelRepository) delete(ctx context.Context, q queryer, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return affected(res, shared.KindChannel, id)
}

// channelArgs returns the mutable columns in table order, starting at name.
func channelArgs(ch *models.Channel) ([]any, error) {
	urls := ch.URLs
	if urls == nil {
		urls = []string{}
	}
	urlsJSON, err := encodeJSON(urls)
	if err != nil {
		return nil, err
	}
	image := ch.Image
	if image == nil {
		image = models.ImageSet{}
	}
	imageJSON, err := encodeJSON(image)
	if err != nil {
		return nil, err
	}

	return []any{
		ch.Name, urlsJSON, ch.ArchiveURL, ch.ChatURL, imageJSON, ch.Title, ch.Category, ch.Intent,
		ch.Mature, ch.Live, ch.Viewers, ch.Thumbnail,
	}, nil
}

func scanChannel(row scanner) (*models.Channel, error) {
	var ch models.Channel
	var urls, image string

	err := row.Scan(
		&ch.ID, &ch.Login, &ch.Type, &ch.Name, &urls, &ch.ArchiveURL, &ch.ChatURL, &image,
		&ch.Title, &ch.Category, &ch.Intent, &ch.Mature, &ch.Live, &ch.Viewers, &ch.Thumbnail,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(urls, &ch.URLs); err != nil {
		return nil, err
	}
	ch.Image = models.ImageSet{}
	if err := decodeJSON(image, &ch.Image); err != nil {
		return nil, err
	}
	return &ch, nil
}
