package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/respond"
)

func writeSurvey(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestInspect(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		publishable bool
		questions   int
		warnings    int
	}{
		{
			name:        "array pages",
			body:        `{"id":"s1","title":"Retro","pages":[{"id":"p1","questions":[{"id":"q1","type":"rating","title":"Mood","placeholder":"10"}]}]}`,
			publishable: true,
			questions:   1,
		},
		{
			name:        "string pages",
			body:        `{"id":"s1","title":"Retro","pages":"[{\"id\":\"p1\",\"questions\":[{\"id\":\"q1\",\"type\":\"text\",\"title\":\"Name\"}]}]"}`,
			publishable: true,
			questions:   1,
		},
		{
			name:      "content fallback",
			body:      `{"id":"s1","title":"Retro","content":[{"id":"p1","questions":[{"id":"q1","type":"multiChoice","title":"Pick"}]}]}`,
			questions: 1,
			// multiple choice without options
			publishable: true,
			warnings:    1,
		},
		{
			name:      "never saved",
			body:      `{"title":"Draft","pages":[{"id":"p1","questions":[{"id":"q1","type":"text","title":"Name"}]}]}`,
			questions: 1,
			warnings:  1,
		},
		{
			name:      "no questions",
			body:      `{"id":"s1","title":"Empty","pages":[]}`,
			questions: 1,
			warnings:  1,
		},
		{
			name:      "malformed pages",
			body:      `{"id":"s1","title":"Broken","pages":"not json"}`,
			questions: 1,
			warnings:  2,
		},
		{
			name:        "bad rating scale",
			body:        `{"id":"s1","title":"Retro","pages":[{"id":"p1","questions":[{"id":"q1","type":"rating","title":"Mood","placeholder":"lots"}]}]}`,
			publishable: true,
			questions:   1,
			warnings:    1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := inspect([]byte(tc.body))
			if err != nil {
				t.Fatalf("inspect: %v", err)
			}
			if rep.Publishable != tc.publishable || rep.Questions != tc.questions || len(rep.Warnings) != tc.warnings {
				t.Fatalf("unexpected report %+v", rep)
			}
		})
	}

	if _, err := inspect([]byte(`{`)); err == nil {
		t.Fatal("expected malformed record to fail")
	}
}

func TestRunCheckExitCodes(t *testing.T) {
	var out bytes.Buffer
	ok := writeSurvey(t, `{"id":"s1","title":"Retro","pages":[{"id":"p1","questions":[{"id":"q1","type":"text","title":"Name"}]}]}`)
	if err := runCheck(ok, &out); err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	if !strings.Contains(out.String(), "publishable: true") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	empty := writeSurvey(t, `{"id":"s1","title":"Empty"}`)
	err := runCheck(empty, &out)
	var ee *exitErr
	if !errors.As(err, &ee) || ee.code != 2 {
		t.Fatalf("runCheck unpublishable = %v, want exit code 2", err)
	}
	if !strings.Contains(out.String(), "warning: survey must contain at least one question") {
		t.Fatalf("unexpected output %q", out.String())
	}

	err = runCheck(filepath.Join(t.TempDir(), "missing.json"), &out)
	if !errors.As(err, &ee) || ee.code != 3 {
		t.Fatalf("runCheck missing file = %v, want exit code 3", err)
	}
}

type scriptedDriver struct {
	inputs  []string
	selects []int
}

func (d *scriptedDriver) Input(_ context.Context, _ respond.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", respond.ErrAborted
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) Select(_ context.Context, _ respond.SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return 0, respond.ErrAborted
	}
	v := d.selects[0]
	d.selects = d.selects[1:]
	return v, nil
}

func (d *scriptedDriver) MultiSelect(_ context.Context, _ respond.SelectConfig) ([]int, error) {
	return nil, respond.ErrAborted
}

func (d *scriptedDriver) Info(context.Context, string) error {
	return nil
}

func TestRunTake(t *testing.T) {
	path := writeSurvey(t, `{"id":"s1","title":"Retro","pages":"[{\"id\":\"p1\",\"questions\":[{\"id\":\"q1\",\"type\":\"text\",\"title\":\"Name\",\"required\":true}]}]"}`)

	var out bytes.Buffer
	driver := &scriptedDriver{inputs: []string{"Ada"}, selects: []int{0}}
	if err := runTake(context.Background(), path, &out, driver); err != nil {
		t.Fatalf("runTake: %v", err)
	}
	var records []model.ResponseRecord
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := []model.ResponseRecord{{QuestionID: "q1", QuestionLabel: "Name", QuestionType: model.QuestionText, Answer: "Ada"}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	err := runTake(context.Background(), path, &out, &scriptedDriver{})
	var ee *exitErr
	if !errors.As(err, &ee) || ee.code != 130 {
		t.Fatalf("runTake aborted = %v, want exit code 130", err)
	}
}
