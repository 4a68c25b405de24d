package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/model"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func onePageSurvey() model.Survey {
	return model.Survey{
		Title:       "Team health",
		Description: "Monthly",
		Pages: []model.Page{{ID: "p1", Questions: []model.Question{
			{ID: "q1", Type: model.QuestionText, Title: "Name", Required: true, NextAction: model.NextPage},
			{ID: "q2", Type: model.QuestionRating, Title: "Mood", Placeholder: "10", NextAction: model.NextPage},
		}}},
	}
}

func TestSurveyLifecycle(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	id, err := store.SaveSurvey(ctx, "ada", onePageSurvey())
	if err != nil {
		t.Fatalf("SaveSurvey (create): %v", err)
	}

	rec, err := store.LoadSurvey(ctx, "ada", id)
	if err != nil {
		t.Fatalf("LoadSurvey: %v", err)
	}
	if rec.ShareURL == "" {
		t.Fatal("expected share url")
	}
	want := onePageSurvey()
	want.ID = id
	if diff := cmp.Diff(want, document.Normalize(rec)); diff != "" {
		t.Fatalf("loaded mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.LoadSurvey(ctx, "bob", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadSurvey by other owner = %v, want ErrNotFound", err)
	}

	want.Title = "Team health v2"
	if _, err := store.SaveSurvey(ctx, "ada", want); err != nil {
		t.Fatalf("SaveSurvey (update): %v", err)
	}

	if err := store.PublishSurvey(ctx, "ada", id); err != nil {
		t.Fatalf("PublishSurvey: %v", err)
	}
	if _, err := store.SaveSurvey(ctx, "ada", want); !errors.Is(err, ErrPublished) {
		t.Fatalf("SaveSurvey on published = %v, want ErrPublished", err)
	}

	pub, err := store.PublishedSurvey(ctx, rec.ShareURL)
	if err != nil {
		t.Fatalf("PublishedSurvey: %v", err)
	}
	if pub.Title != "Team health v2" || !pub.IsPublished {
		t.Fatalf("unexpected published record %+v", pub)
	}

	if err := store.UnpublishSurvey(ctx, "ada", id); err != nil {
		t.Fatalf("UnpublishSurvey: %v", err)
	}
	if _, err := store.PublishedSurvey(ctx, rec.ShareURL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PublishedSurvey after unpublish = %v, want ErrNotFound", err)
	}

	if err := store.DeleteSurvey(ctx, "ada", id); err != nil {
		t.Fatalf("DeleteSurvey: %v", err)
	}
	if err := store.DeleteSurvey(ctx, "ada", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteSurvey = %v, want ErrNotFound", err)
	}
}

func TestPublishRequiresQuestions(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	id, err := store.CreateSurvey(ctx, "ada", model.Survey{Title: "Empty"})
	if err != nil {
		t.Fatalf("CreateSurvey: %v", err)
	}
	if err := store.PublishSurvey(ctx, "ada", id); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("PublishSurvey = %v, want ErrNoQuestions", err)
	}
	if err := store.PublishSurvey(ctx, "ada", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PublishSurvey missing = %v, want ErrNotFound", err)
	}

	rec, err := store.LoadSurvey(ctx, "ada", id)
	if err != nil {
		t.Fatalf("LoadSurvey: %v", err)
	}
	doc := document.Normalize(rec)
	if len(doc.Pages) != 1 || len(doc.Pages[0].Questions) != 1 {
		t.Fatalf("expected bootstrap page, got %+v", doc.Pages)
	}
}

func TestSubmissionsAndStats(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	id, _ := store.CreateSurvey(ctx, "ada", onePageSurvey())
	responses := []model.ResponseRecord{
		{QuestionID: "q1", QuestionLabel: "Name", QuestionType: model.QuestionText, Answer: "Grace"},
		{QuestionID: "q2", QuestionLabel: "Mood", QuestionType: model.QuestionRating, Answer: "8"},
	}

	if _, err := store.SaveSubmission(ctx, id, responses); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveSubmission on draft = %v, want ErrNotFound", err)
	}
	if err := store.PublishSurvey(ctx, "ada", id); err != nil {
		t.Fatalf("PublishSurvey: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.IncrementVisits(ctx, id); err != nil {
			t.Fatalf("IncrementVisits: %v", err)
		}
	}
	subID, err := store.SaveSubmission(ctx, id, responses)
	if err != nil {
		t.Fatalf("SaveSubmission: %v", err)
	}

	subs, err := store.Submissions(ctx, "ada", id)
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != subID || subs[0].SurveyID != id {
		t.Fatalf("unexpected submissions %+v", subs)
	}
	if diff := cmp.Diff(responses, subs[0].Responses); diff != "" {
		t.Fatalf("responses mismatch (-want +got):\n%s", diff)
	}
	if _, err := store.Submissions(ctx, "bob", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Submissions by other owner = %v, want ErrNotFound", err)
	}

	stats, err := store.OwnerStats(ctx, "ada")
	if err != nil {
		t.Fatalf("OwnerStats: %v", err)
	}
	if diff := cmp.Diff(model.Stats{Visits: 3, Submissions: 1, SubmissionRate: 33.33, BounceRate: 66.67}, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	list, err := store.ListSurveys(ctx, "ada")
	if err != nil {
		t.Fatalf("ListSurveys: %v", err)
	}
	if len(list) != 1 || list[0].Stats != stats || !list[0].IsPublished {
		t.Fatalf("unexpected list %+v", list)
	}

	empty, err := store.OwnerStats(ctx, "nobody")
	if err != nil {
		t.Fatalf("OwnerStats: %v", err)
	}
	if empty.BounceRate != 100 || empty.SubmissionRate != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}
}

func TestUsersAndTokens(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	if err := store.CreateUser(ctx, "ada", "lovelace"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	hash, err := store.PasswordHash(ctx, "ada")
	if err != nil || len(hash) == 0 {
		t.Fatalf("PasswordHash: %v", err)
	}
	if _, err := store.PasswordHash(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PasswordHash unknown = %v, want ErrNotFound", err)
	}

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := store.StoreToken(ctx, "ada", "t1", "r1", exp); err != nil {
		t.Fatalf("StoreToken: %v", err)
	}
	got, err := store.ConsumeToken(ctx, "ada", "t1", "r1")
	if err != nil {
		t.Fatalf("ConsumeToken: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expiration = %v, want %v", got, exp)
	}
	if _, err := store.ConsumeToken(ctx, "ada", "t1", "r1"); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("second ConsumeToken = %v, want ErrTokenUsed", err)
	}
}

func TestScopeSatisfiesEditorPersistence(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	scope := Scope{Store: store, Owner: "ada"}

	id, err := scope.SaveSurvey(ctx, onePageSurvey())
	if err != nil {
		t.Fatalf("SaveSurvey: %v", err)
	}
	if err := scope.PublishSurvey(ctx, id); err != nil {
		t.Fatalf("PublishSurvey: %v", err)
	}
	rec, err := scope.LoadSurvey(ctx, id)
	if err != nil || !rec.IsPublished {
		t.Fatalf("LoadSurvey: %+v %v", rec, err)
	}
	if err := scope.UnpublishSurvey(ctx, id); err != nil {
		t.Fatalf("UnpublishSurvey: %v", err)
	}
}
