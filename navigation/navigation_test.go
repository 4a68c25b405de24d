package navigation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/questiontype"
)

func threePages() model.Survey {
	return model.Survey{
		Title: "Onboarding",
		Pages: []model.Page{
			{ID: "p1", Questions: []model.Question{
				{ID: "name", Type: model.QuestionText, Title: "Name", Required: true},
				{ID: "site", Type: model.QuestionLink},
			}},
			{ID: "p2", Questions: []model.Question{
				{ID: "plan", Type: model.QuestionMultiChoice, Title: "Plan", Required: true, Options: []string{"Free", "Pro"}},
			}},
			{ID: "p3", Questions: []model.Question{
				{ID: "score", Type: model.QuestionRating, Title: "Score", Required: true, Placeholder: "10", NextAction: model.EndSurvey},
			}},
		},
	}
}

func TestStep(t *testing.T) {
	cases := []struct {
		name   string
		index  int
		count  int
		dir    model.Direction
		want   int
		wantOK bool
	}{
		{"next from first", 0, 3, model.Next, 1, true},
		{"next at last", 2, 3, model.Next, 2, false},
		{"prev at first", 0, 3, model.Prev, 0, false},
		{"prev from last", 2, 3, model.Prev, 1, true},
		{"single page", 0, 1, model.Next, 0, false},
		{"unknown direction", 1, 3, "sideways", 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Step(tc.index, tc.count, tc.dir)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("Step(%d, %d, %q) = %d, %v; want %d, %v", tc.index, tc.count, tc.dir, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	reg := questiontype.NewRegistry()
	doc := threePages()
	doc.Title = ""

	got, ok := Derive(doc, 1, model.DeviceMobile, reg)
	if !ok {
		t.Fatal("expected preview for page 1")
	}
	want := Preview{
		Title:     model.DefaultSurveyTitle,
		PageIndex: 1,
		PageCount: 3,
		PageLabel: "Page 2 of 3",
		Inputs: []questiontype.Input{{
			ID: "plan", Kind: questiontype.InputChoice, Label: "Plan", Required: true,
			Choices: []questiontype.Choice{{ID: "0", Label: "Free", Value: "Free"}, {ID: "1", Label: "Pro", Value: "Pro"}},
		}},
		HasPrev: true,
		HasNext: true,
		Device:  model.DeviceMobile,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("preview mismatch (-want +got):\n%s", diff)
	}

	if _, ok := Derive(doc, 3, model.DeviceDesktop, reg); ok {
		t.Fatal("expected no preview past the last page")
	}
}

func TestSession_GateBlocksUntilRequiredAnswered(t *testing.T) {
	s := NewSession(threePages(), nil)

	if s.CanProceed() || s.Next() {
		t.Fatal("expected gate to block with a required question unanswered")
	}
	if err := s.Advance(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Advance = %v, want ErrIncomplete", err)
	}
	if s.PageIndex() != 0 {
		t.Fatalf("page index moved to %d", s.PageIndex())
	}

	if err := s.Answer("name", "Ada"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !s.Next() || s.PageIndex() != 1 {
		t.Fatalf("expected to reach page 1, at %d", s.PageIndex())
	}

	if err := s.Answer("plan", ","); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if s.CanProceed() {
		t.Fatal("blank choice selection must not satisfy the gate")
	}
	s.Answer("plan", "Pro")
	if err := s.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !s.IsLastPage() {
		t.Fatal("expected last page")
	}

	s.Answer("score", "7")
	if err := s.Advance(); !errors.Is(err, ErrLastPage) {
		t.Fatalf("Advance at last page = %v, want ErrLastPage", err)
	}
}

func TestSession_PrevIsNotGated(t *testing.T) {
	s := NewSession(threePages(), nil)
	s.Answer("name", "Ada")
	s.Next()

	if !s.Prev() || s.PageIndex() != 0 {
		t.Fatalf("expected back on page 0, at %d", s.PageIndex())
	}
	if s.Prev() {
		t.Fatal("Prev at first page must be a no-op")
	}
}

func TestSession_AnswerUnknownQuestion(t *testing.T) {
	s := NewSession(threePages(), nil)
	if err := s.Answer("nope", "x"); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("Answer = %v, want ErrUnknownQuestion", err)
	}
	if len(s.Answers()) != 0 {
		t.Fatalf("unexpected answers %v", s.Answers())
	}
}

func TestSession_DoesNotAliasSource(t *testing.T) {
	doc := threePages()
	s := NewSession(doc, nil)
	doc.Pages[0].Questions[0].Required = false

	if s.CanProceed() {
		t.Fatal("session must keep its own copy of the survey")
	}
}

func TestSession_InvalidAndComplete(t *testing.T) {
	s := NewSession(threePages(), nil)
	s.Answer("site", "example.com")

	invalid := s.Invalid()
	if len(invalid) != 2 || !errors.Is(invalid["name"], questiontype.ErrRequired) || !errors.Is(invalid["site"], questiontype.ErrInvalidURL) {
		t.Fatalf("unexpected invalid set %v", invalid)
	}

	if _, err := s.Complete(); err == nil {
		t.Fatal("expected Complete to fail")
	}

	s.Answer("name", "Ada")
	s.Answer("site", "https://ada.dev")
	s.Answer("plan", "Free")
	s.Answer("score", "0")
	if _, err := s.Complete(); !errors.Is(err, questiontype.ErrInvalidRating) {
		t.Fatalf("Complete = %v, want ErrInvalidRating", err)
	}

	s.Answer("score", "9")
	records, err := s.Complete()
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	want := []model.ResponseRecord{
		{QuestionID: "name", QuestionLabel: "Name", QuestionType: model.QuestionText, Answer: "Ada"},
		{QuestionID: "site", QuestionLabel: "Question 2", QuestionType: model.QuestionLink, Answer: "https://ada.dev"},
		{QuestionID: "plan", QuestionLabel: "Plan", QuestionType: model.QuestionMultiChoice, Answer: "Free"},
		{QuestionID: "score", QuestionLabel: "Score", QuestionType: model.QuestionRating, Answer: "9"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ValidateLabelsWithinPage(t *testing.T) {
	doc := model.Survey{Pages: []model.Page{
		{ID: "p1", Questions: []model.Question{
			{ID: "a", Type: model.QuestionText, Title: "Name", Required: true},
			{ID: "b", Type: model.QuestionText},
		}},
		{ID: "p2", Questions: []model.Question{
			{ID: "c", Type: model.QuestionText, Required: true},
		}},
	}}
	s := NewSession(doc, nil)

	err := s.Validate()
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("Validate = %v, want a multierror", err)
	}
	var labels []string
	for _, e := range merr.Errors {
		var qe *questiontype.QuestionError
		if !errors.As(e, &qe) {
			t.Fatalf("unexpected error %v", e)
		}
		labels = append(labels, qe.QuestionID+"="+qe.Label)
	}
	if diff := cmp.Diff([]string{"a=Name", "c=Question 1"}, labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}

	s.Answer("a", "Ada")
	s.Answer("c", "yes")
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
