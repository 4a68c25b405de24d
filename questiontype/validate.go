package questiontype

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-builder/model"
)

var (
	ErrRequired      = errors.New("this field is required")
	ErrInvalidURL    = errors.New("must be an http(s) URL")
	ErrInvalidRating = errors.New("rating must be a positive number")
)

var reURL = regexp.MustCompile(`(?i)^https?://[^\s/$.?#][^\s]*$`)

// QuestionError ties a validation failure to its question.
type QuestionError struct {
	QuestionID string
	Label      string
	Err        error
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

func (e *QuestionError) Unwrap() error {
	return e.Err
}

// Validate checks one answer. Required questions fail on an empty answer
// before any type-specific rule runs.
func (r *Registry) Validate(q model.Question, value string) error {
	if IsEmpty(q, value) {
		if q.Required {
			return ErrRequired
		}
		return nil
	}
	def, ok := r.Lookup(q.Type)
	if !ok || def.Validate == nil {
		return nil
	}
	return def.Validate(q, value)
}

// ValidateAll validates every question independently; failures accumulate
// into a *multierror.Error of *QuestionError, in question order.
func (r *Registry) ValidateAll(questions []model.Question, answers map[string]string) error {
	var result *multierror.Error
	for i, q := range questions {
		if err := r.Validate(q, answers[q.ID]); err != nil {
			result = multierror.Append(result, &QuestionError{
				QuestionID: q.ID,
				Label:      q.DisplayTitle(i),
				Err:        err,
			})
		}
	}
	return result.ErrorOrNil()
}

// Invalid returns the failing questions keyed by question id, the flag set
// consumed by renderers.
func (r *Registry) Invalid(questions []model.Question, answers map[string]string) map[string]error {
	out := make(map[string]error)
	for _, q := range questions {
		if err := r.Validate(q, answers[q.ID]); err != nil {
			out[q.ID] = err
		}
	}
	return out
}

// IsEmpty reports whether value counts as no answer for q. Choice answers
// may be comma-joined selections.
func IsEmpty(q model.Question, value string) bool {
	if q.Type == model.QuestionMultiChoice {
		return len(SplitChoices(value)) == 0
	}
	return strings.TrimSpace(value) == ""
}

// SplitChoices splits a comma-joined selection, dropping blanks.
func SplitChoices(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinChoices is the inverse of SplitChoices.
func JoinChoices(selected []string) string {
	return strings.Join(selected, ",")
}

func validateText(model.Question, string) error {
	return nil
}

func validateChoice(model.Question, string) error {
	return nil
}

// Ratings only gate required questions: the answer must then be a positive
// number.
func validateRating(q model.Question, value string) error {
	if !q.Required {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return ErrInvalidRating
	}
	return nil
}

func validateLink(_ model.Question, value string) error {
	if !reURL.MatchString(strings.TrimSpace(value)) {
		return ErrInvalidURL
	}
	return nil
}
