package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"
)

const userColumns = `u.id, u.name, u.email, u.provider, u.avatar_id, u.created_at, u.updated_at,
                     f.id, f.name, f.path`

// GetUserByID returns domain.ErrUserNotFound when no user has the id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + `
              FROM users u LEFT JOIN files f ON f.id = u.avatar_id
              WHERE u.id = ?`
	return db.queryUser(ctx, query, id)
}

// GetProviderByID returns domain.ErrUserNotFound unless the user exists and is a provider.
func (db *DB) GetProviderByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + `
              FROM users u LEFT JOIN files f ON f.id = u.avatar_id
              WHERE u.id = ? AND u.provider = 1`
	return db.queryUser(ctx, query, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
              FROM users u LEFT JOIN files f ON f.id = u.avatar_id
              WHERE u.email = ?`
	return db.queryUser(ctx, query, email)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var (
		user                 models.User
		avatarID             sql.NullInt64
		createdAt, updatedAt string
		fileID               sql.NullInt64
		fileName, filePath   sql.NullString
	)
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.Provider, &avatarID, &createdAt, &updatedAt,
		&fileID, &fileName, &filePath,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if avatarID.Valid {
		user.AvatarID = &avatarID.Int64
	}
	user.Avatar = db.buildFile(fileID, fileName, filePath)
	return &user, nil
}

func (db *DB) buildFile(id sql.NullInt64, name, path sql.NullString) *models.File {
	if !id.Valid {
		return nil
	}
	return &models.File{
		ID:   id.Int64,
		Name: name.String,
		Path: path.String,
		URL:  db.filesURL + "/" + path.String,
	}
}

// UpsertUser inserts the user or updates name, provider flag and avatar by email.
func (db *DB) UpsertUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (name, email, provider, avatar_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(email) DO UPDATE SET
                name = excluded.name,
                provider = excluded.provider,
                avatar_id = COALESCE(excluded.avatar_id, avatar_id),
                updated_at = excluded.updated_at`
	now := time.Now()
	var avatarID sql.NullInt64
	if user.AvatarID != nil {
		avatarID = sql.NullInt64{Int64: *user.AvatarID, Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		user.Name, user.Email, user.Provider, avatarID, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	stored, err := db.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// CreateFile stores an uploaded file record and sets its ID.
func (db *DB) CreateFile(ctx context.Context, file *models.File) error {
	query := `INSERT INTO files (name, path, created_at) VALUES (?, ?, ?)`
	result, err := db.ExecContext(ctx, query, file.Name, file.Path, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	file.ID = id
	file.URL = db.filesURL + "/" + file.Path
	return nil
}
