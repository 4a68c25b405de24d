package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/questiontype"
	"github.com/mbolis/survey-builder/respond"
)

// report is what check prints about a persisted survey.
type report struct {
	Title       string
	Pages       int
	Questions   int
	Publishable bool
	Warnings    []string
}

func inspect(data []byte) (report, error) {
	var rec document.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return report{}, fmt.Errorf("%w: %v", document.ErrMalformed, err)
	}

	rep := report{}
	raw := rec.Pages
	if len(raw) == 0 || string(raw) == "null" {
		raw = rec.Content
	}
	stored, err := document.ParsePages(raw)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s; a default page is used", err))
	}
	storedQuestions := 0
	for _, p := range stored {
		storedQuestions += len(p.Questions)
	}

	doc := document.Normalize(rec)
	rep.Title = doc.DisplayTitle()
	rep.Pages = len(doc.Pages)
	rep.Questions = doc.QuestionCount()
	rep.Publishable = doc.ID != "" && storedQuestions > 0
	if doc.ID == "" {
		rep.Warnings = append(rep.Warnings, "survey has no id; it was never saved")
	}
	if storedQuestions == 0 {
		rep.Warnings = append(rep.Warnings, "survey must contain at least one question")
	}

	for i, p := range doc.Pages {
		for j, q := range p.Questions {
			where := fmt.Sprintf("page %d, %q", i+1, q.DisplayTitle(j))
			switch q.Type {
			case model.QuestionRating:
				if n, err := strconv.Atoi(strings.TrimSpace(q.Placeholder)); err != nil || n <= 0 {
					rep.Warnings = append(rep.Warnings,
						fmt.Sprintf("%s: rating scale %q is not a positive number; %d is used", where, q.Placeholder, model.DefaultRatingScale))
				}
			case model.QuestionMultiChoice:
				if len(q.Options) == 0 {
					rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: multiple choice without options", where))
				}
			default:
				if !q.Type.Valid() {
					rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: unknown question type %q", where, q.Type))
				}
			}
		}
	}
	return rep, nil
}

// runCheck prints the report for the survey at path; an unpublishable
// survey exits with code 2.
func runCheck(path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return codeError(3, "read %s: %s", path, err)
	}
	rep, err := inspect(data)
	if err != nil {
		return codeError(3, "%s: %s", path, err)
	}

	fmt.Fprintf(out, "%s\n", rep.Title)
	fmt.Fprintf(out, "pages: %d\nquestions: %d\npublishable: %t\n", rep.Pages, rep.Questions, rep.Publishable)
	for _, w := range rep.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	if !rep.Publishable {
		return codeError(2, "%s is not publishable", path)
	}
	return nil
}

// runTake answers the survey at path and prints the response records as
// JSON. A nil driver prompts on the terminal.
func runTake(ctx context.Context, path string, out io.Writer, driver respond.PromptDriver) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return codeError(3, "read %s: %s", path, err)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return codeError(3, "%s: %s", path, err)
	}

	runner := respond.New(respond.WithPromptDriver(driver), respond.WithRegistry(questiontype.NewRegistry()))
	records, err := runner.Run(ctx, doc)
	if errors.Is(err, respond.ErrAborted) {
		return codeError(130, "aborted")
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
