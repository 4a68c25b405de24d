package respond

import (
	"context"
	"errors"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/navigation"
	"github.com/mbolis/survey-builder/questiontype"
)

const (
	actionPrev   = "Previous"
	actionNext   = "Next"
	actionSubmit = "Submit"

	skipOption = "(skip)"
)

const msgIncomplete = "Please answer all required questions before continuing."

type Option func(*Runner)

// WithPromptDriver overrides the interactive survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

func WithRegistry(reg *questiontype.Registry) Option {
	return func(r *Runner) {
		if reg != nil {
			r.reg = reg
		}
	}
}

// Runner walks a respondent through a survey one page at a time.
type Runner struct {
	driver PromptDriver
	reg    *questiontype.Registry
}

func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver()
	}
	if r.reg == nil {
		r.reg = questiontype.NewRegistry()
	}
	return r
}

// Run asks every question of doc and returns the response records once the
// respondent submits a valid survey.
func (r *Runner) Run(ctx context.Context, doc model.Survey) ([]model.ResponseRecord, error) {
	session := navigation.NewSession(doc, r.reg)
	if session.PageCount() == 0 {
		return nil, nil
	}

	if err := r.driver.Info(ctx, doc.DisplayTitle()); err != nil {
		return nil, err
	}
	if doc.Description != "" {
		if err := r.driver.Info(ctx, doc.Description); err != nil {
			return nil, err
		}
	}

	for {
		page, _ := session.Page()
		err := r.driver.Info(ctx, navigation.PageLabel(session.PageIndex(), session.PageCount()))
		if err != nil {
			return nil, err
		}

		for i, q := range page.Questions {
			answer, err := r.ask(ctx, q, r.reg.Describe(q, i), session.AnswerFor(q.ID))
			if err != nil {
				return nil, err
			}
			if err = session.Answer(q.ID, answer); err != nil {
				return nil, err
			}
		}

		action, err := r.chooseAction(ctx, session)
		if err != nil {
			return nil, err
		}

		switch action {
		case actionPrev:
			session.Prev()
		case actionNext:
			if err := session.Advance(); errors.Is(err, navigation.ErrIncomplete) {
				if err := r.driver.Info(ctx, msgIncomplete); err != nil {
					return nil, err
				}
			}
		case actionSubmit:
			records, err := session.Complete()
			if err == nil {
				return records, nil
			}
			log.Debugf("respond.submit: %v", err)
			if err := r.reportInvalid(ctx, err); err != nil {
				return nil, err
			}
		}
	}
}

func (r *Runner) chooseAction(ctx context.Context, session *navigation.Session) (string, error) {
	var actions []string
	if navigation.HasPrev(session.PageIndex()) {
		actions = append(actions, actionPrev)
	}
	if session.IsLastPage() {
		actions = append(actions, actionSubmit)
	} else {
		actions = append(actions, actionNext)
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      "Continue",
		Options:      actions,
		DefaultIndex: len(actions) - 1,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(actions) {
		return actions[len(actions)-1], nil
	}
	return actions[idx], nil
}

func (r *Runner) ask(ctx context.Context, q model.Question, in questiontype.Input, current string) (string, error) {
	message := in.Label
	if in.Required {
		message += " *"
	}

	switch in.Kind {
	case questiontype.InputRating:
		options := make([]string, 0, in.Scale+1)
		for n := 1; n <= in.Scale; n++ {
			options = append(options, strconv.Itoa(n))
		}
		return r.selectOne(ctx, message, in, options, current)

	case questiontype.InputChoice:
		if len(in.Choices) == 0 {
			break
		}
		options := make([]string, len(in.Choices))
		for i, c := range in.Choices {
			options[i] = c.Label
		}
		selected := questiontype.SplitChoices(current)
		idxs, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  message,
			Options:  options,
			Defaults: indicesOf(options, selected),
			Help:     in.Description,
		})
		if err != nil {
			return "", err
		}
		values := make([]string, 0, len(idxs))
		for _, idx := range idxs {
			if idx >= 0 && idx < len(in.Choices) {
				values = append(values, in.Choices[idx].Value)
			}
		}
		return questiontype.JoinChoices(values), nil
	}

	help := in.Description
	if help == "" {
		help = in.Placeholder
	}
	return r.driver.Input(ctx, InputConfig{
		Message: message,
		Default: current,
		Help:    help,
		Validator: func(value string) error {
			return r.reg.Validate(q, value)
		},
	})
}

// selectOne offers options plus a skip entry for optional questions.
func (r *Runner) selectOne(ctx context.Context, message string, in questiontype.Input, options []string, current string) (string, error) {
	if !in.Required {
		options = append(options, skipOption)
	}
	def := indexOf(options, current)
	if def < 0 && !in.Required {
		def = len(options) - 1
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      options,
		DefaultIndex: def,
		Help:         in.Description,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) || options[idx] == skipOption {
		return "", nil
	}
	return options[idx], nil
}

func (r *Runner) reportInvalid(ctx context.Context, err error) error {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return r.driver.Info(ctx, err.Error())
	}
	for _, e := range merr.Errors {
		msg := e.Error()
		var qerr *questiontype.QuestionError
		if errors.As(e, &qerr) {
			msg = qerr.Label + ": " + qerr.Err.Error()
		}
		if err := r.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
