package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	"modestwear/internal/domain"
)

type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, email, username, first_name, last_name, phone, password_hash,
	profile_picture, is_verified, is_active, is_staff, created_at, updated_at`

// Create inserts u. A taken email yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := domain.Timestamp(time.Now())
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(id, email, username, first_name, last_name, phone, password_hash,
		                  profile_picture, is_verified, is_active, is_staff, created_at, updated_at)
		VALUES (?, LOWER(?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.Phone, u.Hash,
		u.ProfilePicture, u.IsVerified, u.IsActive, u.IsStaff, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE email = LOWER(?)`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.db.SelectContext(ctx, &out, `SELECT `+userCols+` FROM users ORDER BY created_at`)
	return out, err
}

// UpdateProfile rewrites the self-editable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = domain.Timestamp(time.Now())
	return r.exec(ctx, `
		UPDATE users SET username = ?, first_name = ?, last_name = ?, phone = ?, updated_at = ?
		WHERE id = ?`, u.Username, u.FirstName, u.LastName, u.Phone, u.UpdatedAt, u.ID)
}

func (r *UserRepo) SetPassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, domain.Timestamp(time.Now()), id)
}

func (r *UserRepo) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET is_verified = 1, updated_at = ? WHERE id = ?`,
		domain.Timestamp(time.Now()), id)
}

func (r *UserRepo) SetProfilePicture(ctx context.Context, id, key string) error {
	return r.exec(ctx, `UPDATE users SET profile_picture = ?, updated_at = ? WHERE id = ?`,
		key, domain.Timestamp(time.Now()), id)
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, domain.Timestamp(time.Now()), id)
}

// Delete removes a user; carts, wishlists, orders and outfits cascade.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
}

// HasStaff reports whether any staff account exists.
func (r *UserRepo) HasStaff(ctx context.Context) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE is_staff = 1`)
	return n > 0, err
}

func (r *UserRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
