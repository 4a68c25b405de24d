package database

import (
	"context"
	"errors"
	"time"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/model"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrPublished   = errors.New("survey is published")
	ErrNoQuestions = errors.New("survey must contain at least one question")
	ErrTokenUsed   = errors.New("could not refresh")
)

// Summary is a survey as listed to its owner, with its counters.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublished bool      `json:"is_published"`
	ShareURL    string    `json:"share_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	model.Stats
}

// Store is the persistence collaborator. Survey operations are scoped to an
// owner; public ones go through the share URL.
type Store interface {
	CreateSurvey(ctx context.Context, owner string, doc model.Survey) (string, error)
	ListSurveys(ctx context.Context, owner string) ([]Summary, error)
	LoadSurvey(ctx context.Context, owner, id string) (document.Record, error)
	// SaveSurvey creates doc when it has no id. Published surveys are
	// rejected with ErrPublished.
	SaveSurvey(ctx context.Context, owner string, doc model.Survey) (string, error)
	PublishSurvey(ctx context.Context, owner, id string) error
	UnpublishSurvey(ctx context.Context, owner, id string) error
	DeleteSurvey(ctx context.Context, owner, id string) error

	PublishedSurvey(ctx context.Context, shareURL string) (document.Record, error)
	IncrementVisits(ctx context.Context, id string) error
	SaveSubmission(ctx context.Context, id string, responses []model.ResponseRecord) (int64, error)
	Submissions(ctx context.Context, owner, id string) ([]model.Submission, error)
	OwnerStats(ctx context.Context, owner string) (model.Stats, error)

	CreateUser(ctx context.Context, username, password string) error
	PasswordHash(ctx context.Context, username string) ([]byte, error)
	StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error
	// ConsumeToken deletes a stored token and returns its expiration.
	ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (time.Time, error)

	Close() error
}

// Scope binds a store to one owner; it satisfies builder.Persistence.
type Scope struct {
	Store Store
	Owner string
}

func (s Scope) LoadSurvey(ctx context.Context, id string) (document.Record, error) {
	return s.Store.LoadSurvey(ctx, s.Owner, id)
}

func (s Scope) SaveSurvey(ctx context.Context, doc model.Survey) (string, error) {
	return s.Store.SaveSurvey(ctx, s.Owner, doc)
}

func (s Scope) PublishSurvey(ctx context.Context, id string) error {
	return s.Store.PublishSurvey(ctx, s.Owner, id)
}

func (s Scope) UnpublishSurvey(ctx context.Context, id string) error {
	return s.Store.UnpublishSurvey(ctx, s.Owner, id)
}
