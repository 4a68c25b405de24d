package questiontype

import (
	"strconv"
	"sync"

	"github.com/mbolis/survey-builder/model"
)

// InputKind names the control a question renders as.
type InputKind string

const (
	InputText   InputKind = "text"
	InputChoice InputKind = "choice"
	InputRating InputKind = "rating"
	InputURL    InputKind = "url"
)

const DefaultLinkPlaceholder = "https://example.com"

// Validator checks a non-empty answer against a question's constraints. The
// registry applies the required check before calling it.
type Validator func(q model.Question, value string) error

// Definition binds a question type to its input control and validation rule.
type Definition struct {
	Type     model.QuestionType
	Input    InputKind
	Validate Validator
}

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Input is the typed rendering description of a question. Placeholder and
// Scale are decoded from the overloaded placeholder field.
type Input struct {
	ID          string    `json:"id"`
	Kind        InputKind `json:"kind"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Choices     []Choice  `json:"choices,omitempty"`
	Scale       int       `json:"scale,omitempty"`
}

// Registry maps question types to definitions. Unknown types fall back to
// the universal required check.
type Registry struct {
	mu    sync.RWMutex
	defs  map[model.QuestionType]Definition
	order []model.QuestionType
}

// NewRegistry constructs a registry with the builder's four question types.
func NewRegistry() *Registry {
	reg := &Registry{defs: make(map[model.QuestionType]Definition)}
	reg.registerBuiltins()
	return reg
}

// Register adds or replaces the definition for def.Type.
func (r *Registry) Register(def Definition) {
	if r == nil || def.Type == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Type]; !exists {
		r.order = append(r.order, def.Type)
	}
	r.defs[def.Type] = def
}

func (r *Registry) Lookup(t model.QuestionType) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[t]
	return def, ok
}

// Types lists registered types in registration order.
func (r *Registry) Types() []model.QuestionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.QuestionType(nil), r.order...)
}

// Describe builds the input description for the question at the given
// position on its page.
func (r *Registry) Describe(q model.Question, index int) Input {
	in := Input{
		ID:          q.ID,
		Kind:        InputText,
		Label:       q.DisplayTitle(index),
		Description: q.Description,
		Required:    q.Required,
	}
	if def, ok := r.Lookup(q.Type); ok && def.Input != "" {
		in.Kind = def.Input
	}

	switch in.Kind {
	case InputChoice:
		for i, opt := range q.Options {
			in.Choices = append(in.Choices, Choice{ID: strconv.Itoa(i), Label: opt, Value: opt})
		}
	case InputRating:
		in.Scale = q.RatingScale()
	case InputURL:
		in.Placeholder = q.PlaceholderText()
		if in.Placeholder == "" {
			in.Placeholder = DefaultLinkPlaceholder
		}
	default:
		in.Placeholder = q.PlaceholderText()
	}
	return in
}

func (r *Registry) registerBuiltins() {
	r.Register(Definition{Type: model.QuestionText, Input: InputText, Validate: validateText})
	r.Register(Definition{Type: model.QuestionMultiChoice, Input: InputChoice, Validate: validateChoice})
	r.Register(Definition{Type: model.QuestionRating, Input: InputRating, Validate: validateRating})
	r.Register(Definition{Type: model.QuestionLink, Input: InputURL, Validate: validateLink})
}
