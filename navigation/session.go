package navigation

import (
	"errors"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/questiontype"
)

var (
	ErrUnknownQuestion = errors.New("navigation: unknown question")
	ErrIncomplete      = errors.New("navigation: required questions unanswered")
	ErrLastPage        = errors.New("navigation: already on the last page")
)

// Session is the respondent-facing flow over a read-only copy of a survey.
// Moving forward requires every required question of the current page to
// carry a non-empty answer.
type Session struct {
	survey  model.Survey
	reg     *questiontype.Registry
	index   int
	answers map[string]string
}

func NewSession(doc model.Survey, reg *questiontype.Registry) *Session {
	if reg == nil {
		reg = questiontype.NewRegistry()
	}
	return &Session{
		survey:  doc.Clone(),
		reg:     reg,
		answers: make(map[string]string),
	}
}

func (s *Session) Survey() model.Survey {
	return s.survey.Clone()
}

func (s *Session) PageIndex() int {
	return s.index
}

func (s *Session) PageCount() int {
	return len(s.survey.Pages)
}

func (s *Session) IsLastPage() bool {
	return !HasNext(s.index, len(s.survey.Pages))
}

// Page returns the current page; ok is false for a survey without pages.
func (s *Session) Page() (model.Page, bool) {
	if s.index < 0 || s.index >= len(s.survey.Pages) {
		return model.Page{}, false
	}
	return s.survey.Pages[s.index], true
}

// Answer records the answer for a question of the survey.
func (s *Session) Answer(questionID, value string) error {
	if _, ok := s.survey.Question(questionID); !ok {
		return ErrUnknownQuestion
	}
	s.answers[questionID] = value
	return nil
}

func (s *Session) AnswerFor(questionID string) string {
	return s.answers[questionID]
}

func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// CanProceed reports whether every required question on the current page is
// answered.
func (s *Session) CanProceed() bool {
	page, ok := s.Page()
	if !ok {
		return false
	}
	for _, q := range page.Questions {
		if q.Required && questiontype.IsEmpty(q, s.answers[q.ID]) {
			return false
		}
	}
	return true
}

// Next advances one page when the gate passes and a next page exists.
func (s *Session) Next() bool {
	if !s.CanProceed() {
		return false
	}
	next, ok := Step(s.index, len(s.survey.Pages), model.Next)
	s.index = next
	return ok
}

// Advance is Next with the refusal reason spelled out.
func (s *Session) Advance() error {
	if !s.CanProceed() {
		return ErrIncomplete
	}
	if !s.Next() {
		return ErrLastPage
	}
	return nil
}

// Prev goes back one page; it is never gated.
func (s *Session) Prev() bool {
	prev, ok := Step(s.index, len(s.survey.Pages), model.Prev)
	s.index = prev
	return ok
}

// Invalid validates the current page's answers, keyed by question id.
func (s *Session) Invalid() map[string]error {
	page, ok := s.Page()
	if !ok {
		return nil
	}
	return s.reg.Invalid(page.Questions, s.answers)
}

// Validate checks every question of every page; failures accumulate.
// Untitled questions are labelled by their position within their page.
func (s *Session) Validate() error {
	var result *multierror.Error
	for _, p := range s.survey.Pages {
		if err := s.reg.ValidateAll(p.Questions, s.answers); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Records flattens the survey into one response record per question, in
// page order. Unanswered questions carry an empty answer.
func (s *Session) Records() []model.ResponseRecord {
	var out []model.ResponseRecord
	for _, p := range s.survey.Pages {
		for i, q := range p.Questions {
			out = append(out, model.ResponseRecord{
				QuestionID:    q.ID,
				QuestionLabel: q.DisplayTitle(i),
				QuestionType:  q.Type,
				Answer:        s.answers[q.ID],
			})
		}
	}
	return out
}

// Complete validates the whole survey and returns the records to submit.
func (s *Session) Complete() ([]model.ResponseRecord, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s.Records(), nil
}
