package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/model"
	"github.com/jenilmangukiya/blog-backend/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, email, full_name, password_hash, role, avatar_url, refresh_token, created_at, updated_at`

// UserDB is the credential store view of the database.
type UserDB struct {
	db *DB
}

// Users returns the user repository backed by this database.
func (db *DB) Users() *UserDB {
	return &UserDB{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.Role,
		&u.AvatarURL,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user, assigning its ID and timestamps.
// Returns apperror.ErrConflict if the email is already registered.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := u.db.now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.Role,
		user.AvatarURL,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return apperror.Conflict("user", "email "+user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail looks a user up by their normalized email address.
func (u *UserDB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: "user not found",
			}
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// List returns one page of users, newest first, plus the total user count.
func (u *UserDB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, int, error) {
	limit, offset := clampPage(opts)

	var total int
	if err := u.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting users: %w", err)
	}

	rows, err := u.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, total, nil
}

// UpdateProfile applies the non-nil fields of patch and returns the updated
// row. The update and the read-back are one UPDATE ... RETURNING statement.
func (u *UserDB) UpdateProfile(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if patch.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *patch.FullName)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, *patch.AvatarURL)
	}
	if len(sets) == 0 {
		return u.GetUserByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, u.db.now(), id)

	user, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+`
		 WHERE id = ?
		 RETURNING `+userColumns,
		args...,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		if isUniqueConstraintError(err) {
			return nil, apperror.Conflict("user", "email "+*patch.Email)
		}
		return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	return user, nil
}

// ResetPassword replaces the stored password hash and clears the refresh
// token in the same statement, so a stored new password always comes with
// the old session ended.
func (u *UserDB) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return u.execOne(ctx, id, "resetting password",
		`UPDATE users SET password_hash = ?, refresh_token = '', updated_at = ? WHERE id = ?`,
		passwordHash, u.db.now(), id,
	)
}

// SetRefreshToken overwrites the stored refresh token unconditionally.
// Used at login, where any previous session is replaced.
func (u *UserDB) SetRefreshToken(ctx context.Context, id, token string) error {
	return u.execOne(ctx, id, "setting refresh token",
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		token, u.db.now(), id,
	)
}

// RotateRefreshToken replaces the stored refresh token with next, but only
// if it still equals expected. The compare and the write are the same
// UPDATE statement, so of two concurrent rotations presenting the same token
// exactly one matches a row. The loser gets ErrRefreshTokenMismatch.
func (u *UserDB) RotateRefreshToken(ctx context.Context, id, expected, next string) error {
	if expected == "" {
		return repository.ErrRefreshTokenMismatch
	}

	result, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ?
		 WHERE id = ? AND refresh_token = ?`,
		next, u.db.now(), id, expected,
	)
	if err != nil {
		return fmt.Errorf("sqlite: rotating refresh token for user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrRefreshTokenMismatch
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token so no refresh can
// succeed until the next login.
func (u *UserDB) ClearRefreshToken(ctx context.Context, id string) error {
	return u.execOne(ctx, id, "clearing refresh token",
		`UPDATE users SET refresh_token = '', updated_at = ? WHERE id = ?`,
		u.db.now(), id,
	)
}

// Delete removes a user. Their blogs stay, with no owner.
func (u *UserDB) Delete(ctx context.Context, id string) error {
	return u.execOne(ctx, id, "deleting user", `DELETE FROM users WHERE id = ?`, id)
}

// execOne runs a statement that must affect exactly the row with the given
// id, mapping zero affected rows to NotFound.
func (u *UserDB) execOne(ctx context.Context, id, op, query string, args ...any) error {
	result, err := u.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: %s for user %s: %w", op, id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// clampPage applies the listing defaults: 10 per page, at most 100.
func clampPage(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
