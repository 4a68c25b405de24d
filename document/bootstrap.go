// Package document produces valid Survey Documents: defaults for new surveys,
// normalization of persisted records whose pages are missing, malformed, or
// JSON-encoded as a string, and the persisted-shape codec.
package document

import (
	"strconv"

	"github.com/mbolis/survey-builder/model"
)

// NewQuestion returns a default text question titled for position n
// (one-based).
func NewQuestion(n int) model.Question {
	return model.Question{
		ID:          model.NewID(),
		Type:        model.QuestionText,
		Title:       "Question " + strconv.Itoa(n),
		Description: "",
		Placeholder: model.DefaultPlaceholder,
		Required:    false,
		NextAction:  model.NextPage,
	}
}

// NewPage returns a page holding one default question.
func NewPage() model.Page {
	return model.Page{
		ID:        model.NewID(),
		Questions: []model.Question{NewQuestion(1)},
	}
}

// New returns the empty document used for a brand-new survey.
func New() model.Survey {
	return model.Survey{
		Title:       model.DefaultSurveyTitle,
		Description: "",
		IsPublished: false,
		Pages:       []model.Page{NewPage()},
	}
}
