package builder

import (
	"context"
	"errors"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/model"
)

var (
	ErrNotSaved       = errors.New("builder: survey has not been saved")
	ErrNotPublishable = errors.New("builder: survey must be saved and contain at least one question")
)

// Persistence is the storage collaborator behind an editor.
type Persistence interface {
	LoadSurvey(ctx context.Context, id string) (document.Record, error)
	// SaveSurvey stores doc and returns its id, newly assigned when doc had none.
	SaveSurvey(ctx context.Context, doc model.Survey) (string, error)
	PublishSurvey(ctx context.Context, id string) error
	UnpublishSurvey(ctx context.Context, id string) error
}

// Editor couples a store with its persistence. The store stays editable
// while a call is in flight, and a failed call leaves it as it was.
type Editor struct {
	Store *Store
	db    Persistence
}

func NewEditor(store *Store, db Persistence) *Editor {
	if store == nil {
		store = New()
	}
	return &Editor{Store: store, db: db}
}

// Load hydrates the store from the persisted survey id and shows its first
// page.
func (e *Editor) Load(ctx context.Context, id string) error {
	rec, err := e.db.LoadSurvey(ctx, id)
	if err != nil {
		return err
	}
	e.Store.SetSurvey(document.Normalize(rec))
	e.Store.SetActivePageIndex(0)
	return nil
}

// Save stores the document as it is when Save is called.
func (e *Editor) Save(ctx context.Context) (string, error) {
	doc := e.Store.Survey()
	id, err := e.db.SaveSurvey(ctx, doc)
	if err != nil {
		log.WithFields(log.Fields{"survey": doc.ID}).Warnf("builder.save: %v", err)
		return "", err
	}
	if doc.ID == "" {
		e.Store.assignID(id)
	}
	return id, nil
}

// IsPublishable reports whether the document has been saved and holds at
// least one question.
func (e *Editor) IsPublishable() bool {
	return isPublishable(e.Store.Survey())
}

func (e *Editor) Publish(ctx context.Context) error {
	doc := e.Store.Survey()
	if !isPublishable(doc) {
		return ErrNotPublishable
	}
	if err := e.db.PublishSurvey(ctx, doc.ID); err != nil {
		return err
	}
	e.Store.setPublished(true)
	return nil
}

func (e *Editor) Unpublish(ctx context.Context) error {
	doc := e.Store.Survey()
	if doc.ID == "" {
		return ErrNotSaved
	}
	if err := e.db.UnpublishSurvey(ctx, doc.ID); err != nil {
		return err
	}
	e.Store.setPublished(false)
	return nil
}

func isPublishable(doc model.Survey) bool {
	return doc.ID != "" && doc.QuestionCount() > 0
}
