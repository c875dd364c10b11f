package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
)

const userColumns = `id, login, type, name, image, favorites`

// UserRepository persists [models.User] rows.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Users lists users of typ ordered by ID, or every user when typ is empty.
func (r *UserRepository) Users(ctx context.Context, typ string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE (? = '' OR type = ?) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, typ, typ)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) User(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, r.db, id)
}

func (r *UserRepository) get(ctx context.Context, q queryer, id int64) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err, shared.KindUser, id)
	}
	return u, nil
}

func (r *UserRepository) UserByLogin(ctx context.Context, login, typ string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE login = ? AND type = ?`, login, typ)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, shared.KindUser, login)
	}
	return u, nil
}

// AddUser inserts u and sets its ID.
func (r *UserRepository) AddUser(ctx context.Context, u *models.User) error {
	image, favorites, err := userArgs(u)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (login, type, name, image, favorites) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, u.Login, u.Type, u.Name, image, favorites)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", mapError(err, shared.KindUser, u.Login))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, u *models.User) error {
	image, favorites, err := userArgs(u)
	if err != nil {
		return err
	}

	query := `UPDATE users SET name = ?, image = ?, favorites = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, u.Name, image, favorites, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return affected(res, shared.KindUser, u.ID)
}

func (r *UserRepository) delete(ctx context.Context, q queryer, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return affected(res, shared.KindUser, id)
}

// favorited reports whether any user of typ has login among its favorites.
func (r *UserRepository) favorited(ctx context.Context, q queryer, login, typ string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users, json_each(users.favorites)
			WHERE users.type = ? AND json_each.value = ?
		)
	`
	var exists bool
	if err := q.QueryRowContext(ctx, query, typ, login).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check favorites: %w", err)
	}
	return exists, nil
}

func userArgs(u *models.User) (image, favorites string, err error) {
	img := u.Image
	if img == nil {
		img = models.ImageSet{}
	}
	if image, err = encodeJSON(img); err != nil {
		return "", "", err
	}

	favs := u.Favorites
	if favs == nil {
		favs = []string{}
	}
	if favorites, err = encodeJSON(favs); err != nil {
		return "", "", err
	}
	return image, favorites, nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var image, favorites string

	if err := row.Scan(&u.ID, &u.Login, &u.Type, &u.Name, &image, &favorites); err != nil {
		return nil, err
	}

	u.Image = models.ImageSet{}
	if err := decodeJSON(image, &u.Image); err != nil {
		return nil, err
	}
	if err := decodeJSON(favorites, &u.Favorites); err != nil {
		return nil, err
	}
	return &u, nil
}
