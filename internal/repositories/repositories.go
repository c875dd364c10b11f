package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// queryer is satisfied by both [sql.DB] and [sql.Tx].
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store is the SQLite entity store.
type Store struct {
	*ChannelRepository
	*UserRepository
	db *sql.DB
}

// NewStore creates a store over a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		ChannelRepository: NewChannelRepository(db),
		UserRepository:    NewUserRepository(db),
		db:                db,
	}
}

// RemoveUser deletes a user. With cascade, favorites that no remaining user of the same type follows are deleted in
// the same transaction and their IDs returned.
func (s *Store) RemoveUser(ctx context.Context, id int64, cascade bool) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := s.UserRepository.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.UserRepository.delete(ctx, tx, id); err != nil {
		return nil, err
	}

	var removed []int64
	if cascade {
		for _, login := range user.Favorites {
			followed, err := s.UserRepository.favorited(ctx, tx, login, user.Type)
			if err != nil {
				return nil, err
			}
			if followed {
				continue
			}

			ch, err := s.ChannelRepository.byLogin(ctx, tx, login, user.Type)
			if errors.Is(err, shared.ErrNotFound) {
				continue
			} else if err != nil {
				return nil, err
			}
			if err := s.ChannelRepository.delete(ctx, tx, ch.ID); err != nil {
				return nil, err
			}
			removed = append(removed, ch.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return removed, nil
}

// mapError converts driver errors into the store's sentinel errors.
func mapError(err error, kind string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %v", shared.ErrNotFound, kind, key)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s %v", shared.ErrAlreadyExists, kind, key)
	}
	return err
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}

func affected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind, id)
	}
	return nil
}
