// Package builder owns an editable survey document together with the
// builder's UI state, and exposes the only operations allowed to change them.
//
// Every mutation either applies completely or leaves the state untouched.
// Structural guards (deleting the last page, question or option, and any
// out-of-range index) are not errors: the operation reports false and
// nothing changes.
package builder

import (
	"strconv"
	"sync"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/navigation"
)

type MetaField string

const (
	MetaTitle       MetaField = "title"
	MetaDescription MetaField = "description"
)

type QuestionField string

const (
	FieldType        QuestionField = "type"
	FieldTitle       QuestionField = "title"
	FieldDescription QuestionField = "description"
	FieldPlaceholder QuestionField = "placeholder"
	FieldRequired    QuestionField = "required"
	FieldNextAction  QuestionField = "nextAction"
)

type UIState struct {
	ActivePageIndex int              `json:"activePageIndex"`
	ActiveView      model.ActiveView `json:"activeView"`
	DeviceView      model.DeviceView `json:"deviceView"`
}

// State is a snapshot handed to readers. It never aliases the store.
type State struct {
	Survey model.Survey `json:"survey"`
	UI     UIState      `json:"ui"`
}

type Listener func(State)

// Store is one builder session. The zero value is not usable; use New.
type Store struct {
	mu        sync.Mutex
	survey    model.Survey
	ui        UIState
	listeners []*Listener
}

// New returns a store over a brand-new document.
func New() *Store {
	return &Store{
		survey: document.New(),
		ui: UIState{
			ActivePageIndex: 0,
			ActiveView:      model.ViewEdit,
			DeviceView:      model.DeviceDesktop,
		},
	}
}

func (s *Store) Survey() model.Survey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.survey.Clone()
}

func (s *Store) UI() UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// ActivePage returns the page addressed by the active index. ok is false when
// the index was set out of range.
func (s *Store) ActivePage() (model.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ui.ActivePageIndex
	if i < 0 || i >= len(s.survey.Pages) {
		return model.Page{}, false
	}
	return s.survey.Pages[i].Clone(), true
}

// Subscribe registers fn to receive a snapshot after each applied mutation.
// The returned func removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &fn
	s.listeners = append(s.listeners, l)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, other := range s.listeners {
			if other == l {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) snapshot() State {
	return State{Survey: s.survey.Clone(), UI: s.ui}
}

// apply runs fn under the lock and notifies listeners when it reports a
// change.
func (s *Store) apply(op string, fn func() bool) bool {
	s.mu.Lock()
	applied := fn()
	if !applied {
		s.mu.Unlock()
		log.Debugf("builder.%s: not applied", op)
		return false
	}
	state := s.snapshot()
	listeners := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = *l
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
	return true
}

// SetSurvey replaces the whole document. Callers hand in a normalized
// document; nothing is validated here.
func (s *Store) SetSurvey(doc model.Survey) {
	s.apply("setSurvey", func() bool {
		s.survey = doc.Clone()
		return true
	})
}

func (s *Store) UpdateSurveyMeta(field MetaField, value string) bool {
	return s.apply("updateSurveyMeta", func() bool {
		switch field {
		case MetaTitle:
			s.survey.Title = value
		case MetaDescription:
			s.survey.Description = value
		default:
			return false
		}
		return true
	})
}

// AddPage appends a page holding one default question and makes it active.
// It returns the new page's index.
func (s *Store) AddPage() int {
	var index int
	s.apply("addPage", func() bool {
		s.survey.Pages = append(s.survey.Pages, document.NewPage())
		index = len(s.survey.Pages) - 1
		s.ui.ActivePageIndex = index
		return true
	})
	return index
}

// DeletePage removes page i unless it is the last one. Removing a page at or
// before the active index moves the active index back by one, floored at 0.
func (s *Store) DeletePage(i int) bool {
	return s.apply("deletePage", func() bool {
		if len(s.survey.Pages) <= 1 || !s.validPage(i) {
			return false
		}
		s.survey.Pages = append(s.survey.Pages[:i], s.survey.Pages[i+1:]...)
		if i <= s.ui.ActivePageIndex && s.ui.ActivePageIndex > 0 {
			s.ui.ActivePageIndex--
		}
		return true
	})
}

func (s *Store) AddQuestion(p int) bool {
	return s.apply("addQuestion", func() bool {
		if !s.validPage(p) {
			return false
		}
		page := &s.survey.Pages[p]
		page.Questions = append(page.Questions, document.NewQuestion(len(page.Questions)+1))
		return true
	})
}

// DeleteQuestion removes a question unless it is the last one on its page.
func (s *Store) DeleteQuestion(p, q int) bool {
	return s.apply("deleteQuestion", func() bool {
		if !s.validQuestion(p, q) {
			return false
		}
		page := &s.survey.Pages[p]
		if len(page.Questions) <= 1 {
			return false
		}
		page.Questions = append(page.Questions[:q], page.Questions[q+1:]...)
		return true
	})
}

// UpdateQuestion replaces one field. Type and nextAction accept their typed
// values or plain strings, and must be known values; required takes a bool;
// every other field takes a string. Changing the type keeps fields that only
// mattered to the previous type.
func (s *Store) UpdateQuestion(p, q int, field QuestionField, value any) bool {
	return s.apply("updateQuestion", func() bool {
		if !s.validQuestion(p, q) {
			return false
		}
		target := &s.survey.Pages[p].Questions[q]

		switch field {
		case FieldType:
			t, ok := asQuestionType(value)
			if !ok || !t.Valid() {
				return false
			}
			target.Type = t
		case FieldNextAction:
			a, ok := asNextAction(value)
			if !ok || !a.Valid() {
				return false
			}
			target.NextAction = a
		case FieldRequired:
			b, ok := value.(bool)
			if !ok {
				return false
			}
			target.Required = b
		case FieldTitle, FieldDescription, FieldPlaceholder:
			str, ok := value.(string)
			if !ok {
				return false
			}
			switch field {
			case FieldTitle:
				target.Title = str
			case FieldDescription:
				target.Description = str
			default:
				target.Placeholder = str
			}
		default:
			return false
		}
		return true
	})
}

// AddOption appends "Option N", creating the option list if absent.
func (s *Store) AddOption(p, q int) bool {
	return s.apply("addOption", func() bool {
		if !s.validQuestion(p, q) {
			return false
		}
		target := &s.survey.Pages[p].Questions[q]
		if target.Options == nil {
			target.Options = []string{}
		}
		target.Options = append(target.Options, "Option "+strconv.Itoa(len(target.Options)+1))
		return true
	})
}

func (s *Store) UpdateOption(p, q, o int, value string) bool {
	return s.apply("updateOption", func() bool {
		if !s.validOption(p, q, o) {
			return false
		}
		s.survey.Pages[p].Questions[q].Options[o] = value
		return true
	})
}

// DeleteOption removes an option unless it is the only one left.
func (s *Store) DeleteOption(p, q, o int) bool {
	return s.apply("deleteOption", func() bool {
		if !s.validOption(p, q, o) {
			return false
		}
		target := &s.survey.Pages[p].Questions[q]
		if len(target.Options) <= 1 {
			return false
		}
		target.Options = append(target.Options[:o], target.Options[o+1:]...)
		return true
	})
}

// SetActivePageIndex is unchecked; callers keep i within the page range.
func (s *Store) SetActivePageIndex(i int) {
	s.apply("setActivePageIndex", func() bool {
		s.ui.ActivePageIndex = i
		return true
	})
}

func (s *Store) SetActiveView(v model.ActiveView) bool {
	return s.apply("setActiveView", func() bool {
		if !v.Valid() {
			return false
		}
		s.ui.ActiveView = v
		return true
	})
}

func (s *Store) SetDeviceView(d model.DeviceView) bool {
	return s.apply("setDeviceView", func() bool {
		if !d.Valid() {
			return false
		}
		s.ui.DeviceView = d
		return true
	})
}

// NavigatePreview moves the active page one step; it is a no-op at either
// end.
func (s *Store) NavigatePreview(dir model.Direction) bool {
	return s.apply("navigatePreview", func() bool {
		next, ok := navigation.Step(s.ui.ActivePageIndex, len(s.survey.Pages), dir)
		if !ok {
			return false
		}
		s.ui.ActivePageIndex = next
		return true
	})
}

// assignID sets the id of a document that has none yet.
func (s *Store) assignID(id string) bool {
	return s.apply("assignID", func() bool {
		if id == "" || s.survey.ID != "" {
			return false
		}
		s.survey.ID = id
		return true
	})
}

func (s *Store) setPublished(published bool) bool {
	return s.apply("setPublished", func() bool {
		if s.survey.IsPublished == published {
			return false
		}
		s.survey.IsPublished = published
		return true
	})
}

func (s *Store) validPage(p int) bool {
	return p >= 0 && p < len(s.survey.Pages)
}

func (s *Store) validQuestion(p, q int) bool {
	return s.validPage(p) && q >= 0 && q < len(s.survey.Pages[p].Questions)
}

func (s *Store) validOption(p, q, o int) bool {
	return s.validQuestion(p, q) && o >= 0 && o < len(s.survey.Pages[p].Questions[q].Options)
}

func asQuestionType(v any) (model.QuestionType, bool) {
	switch t := v.(type) {
	case model.QuestionType:
		return t, true
	case string:
		return model.QuestionType(t), true
	}
	return "", false
}

func asNextAction(v any) (model.NextAction, bool) {
	switch a := v.(type) {
	case model.NextAction:
		return a, true
	case string:
		return model.NextAction(a), true
	}
	return "", false
}
