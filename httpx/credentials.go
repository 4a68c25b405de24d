package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-builder/config"
	"github.com/mbolis/survey-builder/database"
)

const refreshTokenTTL = 8760 * time.Hour

// Users is the slice of the store the credentials verifier needs.
type Users interface {
	PasswordHash(ctx context.Context, username string) ([]byte, error)
	StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error
	ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (time.Time, error)
}

var _ Users = database.Store(nil)

type credentialsVerifier struct {
	users Users
	now   func() time.Time
}

func CredentialsVerifier(users Users) oauth.CredentialsVerifier {
	return &credentialsVerifier{users, time.Now}
}

func NewBearerServer(users Users, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(users), nil)
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	hash, err := cs.users.PasswordHash(r.Context(), username)
	if err != nil {
		return err
	}

	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}
func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.users.StoreToken(context.Background(), credential, tokenID, refreshTokenID, cs.now().Add(refreshTokenTTL))
}
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	expiration, err := cs.users.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID)
	if err != nil {
		return errors.New("could not refresh")
	}

	if expiration.Before(cs.now()) {
		return errors.New("could not refresh")
	}
	return nil
}
func (*credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{"roles": "admin"}, nil
}
func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}
func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
