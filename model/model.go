package model

import (
	"strconv"
	"strings"
)

type QuestionType string

const (
	QuestionText        QuestionType = "text"
	QuestionMultiChoice QuestionType = "multiChoice"
	QuestionRating      QuestionType = "rating"
	QuestionLink        QuestionType = "link"
)

// QuestionTypes lists the closed set of builder question types, in the order
// the editor offers them.
var QuestionTypes = []QuestionType{QuestionText, QuestionMultiChoice, QuestionRating, QuestionLink}

func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

type NextAction string

const (
	NextPage  NextAction = "nextPage"
	EndSurvey NextAction = "endSurvey"
)

func (a NextAction) Valid() bool {
	return a == NextPage || a == EndSurvey
}

const (
	DefaultSurveyTitle = "Untitled Survey"
	DefaultPlaceholder = "Enter your answer"
	DefaultRatingScale = 5
)

type Survey struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published"`
	Pages       []Page `json:"pages"`
}

type Page struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Question is a single prompt. Placeholder is overloaded: an input
// placeholder for text and link questions, the maximum scale value for
// rating questions. Use PlaceholderText and RatingScale to read it.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Placeholder string       `json:"placeholder"`
	Required    bool         `json:"required"`
	NextAction  NextAction   `json:"nextAction"`
	Options     []string     `json:"options,omitempty"`
}

// DisplayTitle returns the survey title, or the default title when empty.
func (s Survey) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return DefaultSurveyTitle
	}
	return s.Title
}

// QuestionCount counts questions across all pages.
func (s Survey) QuestionCount() int {
	n := 0
	for _, p := range s.Pages {
		n += len(p.Questions)
	}
	return n
}

// Question looks up a question by id across all pages.
func (s Survey) Question(id string) (Question, bool) {
	for _, p := range s.Pages {
		for _, q := range p.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}

// Clone returns a deep copy; slices of the copy never alias the receiver.
func (s Survey) Clone() Survey {
	out := s
	if s.Pages != nil {
		out.Pages = make([]Page, len(s.Pages))
		for i, p := range s.Pages {
			out.Pages[i] = p.Clone()
		}
	}
	return out
}

func (p Page) Clone() Page {
	out := p
	if p.Questions != nil {
		out.Questions = make([]Question, len(p.Questions))
		for i, q := range p.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	return out
}

func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string{}, q.Options...)
	}
	return out
}

// DisplayTitle returns the question title, or "Question N" for the question
// at the given zero-based position when the title is empty.
func (q Question) DisplayTitle(index int) string {
	if strings.TrimSpace(q.Title) == "" {
		return "Question " + strconv.Itoa(index+1)
	}
	return q.Title
}

// PlaceholderText is the input placeholder for text-like questions. It is
// empty for rating questions, whose placeholder carries the scale.
func (q Question) PlaceholderText() string {
	if q.Type == QuestionRating {
		return ""
	}
	return q.Placeholder
}

// RatingScale decodes the scale stored in Placeholder. Empty or
// non-positive values fall back to DefaultRatingScale.
func (q Question) RatingScale() int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Placeholder))
	if err != nil || n <= 0 {
		return DefaultRatingScale
	}
	return n
}

// SetRatingScale encodes n into Placeholder.
func (q *Question) SetRatingScale(n int) {
	if n <= 0 {
		n = DefaultRatingScale
	}
	q.Placeholder = strconv.Itoa(n)
}
