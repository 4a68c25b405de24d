package document

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/model"
)

var ErrMalformed = errors.New("document: malformed survey")

// Record is a survey as the persistence layer hands it over. Pages (or the
// legacy Content field) is either a JSON array of pages or a JSON string
// holding that array. Counter fields ride along on loaded records but are
// not part of the editable document.
type Record struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	IsPublished bool            `json:"is_published"`
	ShareURL    string          `json:"share_url,omitempty"`
	Pages       json.RawMessage `json:"pages,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`

	Visits         int     `json:"visits,omitempty"`
	Submissions    int     `json:"submissions,omitempty"`
	SubmissionRate float64 `json:"submissionRate,omitempty"`
	BounceRate     float64 `json:"bounceRate,omitempty"`
}

// Normalize turns a record into an editable document. Missing, empty or
// unparseable pages are replaced by a single default page; the record's
// counters are dropped.
func Normalize(rec Record) model.Survey {
	doc := model.Survey{
		ID:          rec.ID,
		Title:       rec.Title,
		IsPublished: rec.IsPublished,
	}
	if rec.Description != nil {
		doc.Description = *rec.Description
	}

	raw := rec.Pages
	if isEmptyRaw(raw) {
		raw = rec.Content
	}
	pages, err := ParsePages(raw)
	if err != nil {
		log.WithFields(log.Fields{"survey": rec.ID}).Warnf("document.normalize: %v", err)
	}
	if len(pages) == 0 {
		pages = []model.Page{NewPage()}
	}
	doc.Pages = fillPages(pages)
	return doc
}

// ParsePages decodes pages from a JSON array or from a JSON string holding
// that array. Absent or null input yields no pages and no error.
func ParsePages(raw []byte) ([]model.Page, error) {
	raw = bytes.TrimSpace(raw)
	if isEmptyRaw(raw) {
		return nil, nil
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: pages string: %v", ErrMalformed, err)
		}
		raw = bytes.TrimSpace([]byte(text))
		if isEmptyRaw(raw) {
			return nil, nil
		}
	}
	if raw[0] != '[' {
		return nil, fmt.Errorf("%w: pages is not an array", ErrMalformed)
	}

	var pages []model.Page
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, fmt.Errorf("%w: pages: %v", ErrMalformed, err)
	}
	return pages, nil
}

// Decode parses a persisted survey record and normalizes it. Only an
// unparseable record is an error; bad pages fall back to the default page.
func Decode(data []byte) (model.Survey, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Survey{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Normalize(rec), nil
}

// Encode serializes a document into the persisted shape.
func Encode(doc model.Survey) ([]byte, error) {
	if doc.Pages == nil {
		doc.Pages = []model.Page{}
	}
	return json.Marshal(doc)
}

// EncodePages renders pages as the JSON text stored by string-column stores.
func EncodePages(pages []model.Page) (string, error) {
	if pages == nil {
		pages = []model.Page{}
	}
	data, err := json.Marshal(pages)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TextPages wraps stored JSON text as a string-valued raw pages field.
func TextPages(text string) json.RawMessage {
	data, _ := json.Marshal(text)
	return data
}

func isEmptyRaw(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func fillPages(pages []model.Page) []model.Page {
	for i := range pages {
		p := &pages[i]
		if p.ID == "" {
			p.ID = model.NewID()
		}
		if len(p.Questions) == 0 {
			p.Questions = []model.Question{NewQuestion(1)}
		}
		for j := range p.Questions {
			q := &p.Questions[j]
			if q.ID == "" {
				q.ID = model.NewID()
			}
			if q.Type == "" {
				q.Type = model.QuestionText
			}
			if q.NextAction == "" {
				q.NextAction = model.NextPage
			}
		}
	}
	return pages
}
