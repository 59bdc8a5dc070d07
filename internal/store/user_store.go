package store

import (
	"context"

	users "github.com/AdamBeresnev/post-battles/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserStore struct {
	db sqlx.ExtContext
}

const (
	getUserQuery           = "SELECT * FROM users WHERE id = ?"
	getUserByProviderQuery = `
        SELECT * FROM users 
        WHERE provider = ? 
        AND provider_id = ?
    `
	createUserQuery = `
		INSERT INTO users (id, email, username, role, provider, provider_id, avatar_url, created_at) VALUES
		(:id, :email, :username, :role, :provider, :provider_id, :avatar_url, :created_at)
	`
	updateUserNameAndAvatarQuery = `
		UPDATE users SET
		username = :username,
		avatar_url = :avatar_url
		WHERE id = :id
	`
)

func NewUserStore(db sqlx.ExtContext) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider string, providerID string) (*users.User, error) {
	var user users.User
	err := sqlx.GetContext(ctx, s.db, &user, getUserByProviderQuery, provider, providerID)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	err := sqlx.GetContext(ctx, s.db, &user, getUserQuery, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	if user.Role == "" {
		user.Role = users.RoleUser
	}
	_, err := sqlx.NamedExecContext(ctx, s.db, createUserQuery, user)
	return mapInsertError(err)
}

func (s *UserStore) UpdateUserNameAndAvatar(ctx context.Context, user *users.User) error {
	_, err := sqlx.NamedExecContext(ctx, s.db, updateUserNameAndAvatarQuery, user)
	return err
}

func (s *UserStore) SetRole(ctx context.Context, id uuid.UUID, role users.Role) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", role, id)
	return err
}

// CountUsers is the registered population used by participation thresholds.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, s.db, &n, "SELECT COUNT(*) FROM users")
	return n, err
}
