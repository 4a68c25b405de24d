package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func (s *SQLite) CreateUser(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "user.create.hash")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user (username, password_hash) VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash`,
		username,
		hash,
	)
	return errors.Wrap(err, "user.create")
}

func (s *SQLite) PasswordHash(ctx context.Context, username string) ([]byte, error) {
	var hash []byte
	err := s.db.QueryRowContext(ctx, "SELECT password_hash FROM user WHERE username=?", username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrNotFound, "user.password")
	}
	return hash, errors.Wrap(err, "user.password")
}

func (s *SQLite) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO token (username, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)",
		username,
		tokenID,
		refreshTokenID,
		expiration.UTC(),
	)
	return errors.Wrap(err, "token.store")
}

func (s *SQLite) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (time.Time, error) {
	var expiration time.Time

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return expiration, errors.Wrap(err, "token.consume.begin_tx")
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		SELECT expiration FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username,
		tokenID,
		refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return expiration, errors.Wrap(ErrTokenUsed, "token.consume")
	}
	if err != nil {
		return expiration, errors.Wrap(err, "token.consume")
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`,
		username,
		tokenID,
		refreshTokenID,
	)
	if err != nil {
		return expiration, errors.Wrap(err, "token.consume.delete")
	}
	return expiration, errors.Wrap(tx.Commit(), "token.consume.commit")
}
