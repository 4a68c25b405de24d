package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/oauth"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/questiontype"
)

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	if buf.Status() != 0 || buf.Body() != nil {
		t.Fatal("expected empty buffer")
	}

	buf.Header().Set("x-test", "1")
	buf.WriteHeader(http.StatusCreated)
	buf.WriteHeader(http.StatusTeapot)
	buf.Write([]byte("hello"))

	rec := httptest.NewRecorder()
	if err := buf.Flush(rec); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if rec.Code != http.StatusCreated || rec.Body.String() != "hello" || rec.Header().Get("x-test") != "1" {
		t.Fatalf("unexpected flushed response %d %q %v", rec.Code, rec.Body.String(), rec.Header())
	}

	implicit := NewResponseBuffer()
	implicit.Write([]byte("{}"))
	if implicit.Status() != http.StatusOK {
		t.Fatalf("implicit status = %d", implicit.Status())
	}
}

func TestGrantRequest(t *testing.T) {
	src := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req := GrantRequest(src, url.Values{"grant_type": {"password"}, "username": {"ada"}})

	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if req.Form.Get("grant_type") != "password" || req.Form.Get("username") != "ada" {
		t.Fatalf("unexpected form %v", req.Form)
	}
	if req.RemoteAddr != src.RemoteAddr {
		t.Fatalf("remote addr = %q", req.RemoteAddr)
	}
}

func TestLogStoreError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", pkgerrors.Wrap(database.ErrNotFound, "survey.load"), http.StatusNotFound},
		{"published", pkgerrors.Wrap(database.ErrPublished, "survey.save"), http.StatusConflict},
		{"no questions", pkgerrors.Wrap(database.ErrNoQuestions, "survey.publish"), http.StatusConflict},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			LogStoreError(rec, "test", "s1", tc.err)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	LogStoreError(rec, "publish", "s1", pkgerrors.Wrap(database.ErrNoQuestions, "survey.publish"))
	if got := rec.Body.String(); got != "survey must contain at least one question\n" {
		t.Fatalf("body = %q", got)
	}
}

func TestLogInvalid(t *testing.T) {
	reg := questiontype.NewRegistry()
	err := reg.ValidateAll([]model.Question{
		{ID: "q1", Type: model.QuestionText, Title: "Name", Required: true},
		{ID: "q2", Type: model.QuestionLink, Title: "Site"},
	}, map[string]string{"q2": "nope"})

	rec := httptest.NewRecorder()
	LogInvalid(rec, httptest.NewRequest(http.MethodPost, "/", nil), "submission.validate", err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Fields []FieldError `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []FieldError{
		{QuestionID: "q1", Label: "Name", Message: questiontype.ErrRequired.Error()},
		{QuestionID: "q2", Label: "Site", Message: questiontype.ErrInvalidURL.Error()},
	}
	if diff := cmp.Diff(want, body.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

type fakeUsers struct {
	hashes map[string][]byte
	tokens map[string]time.Time
}

func (f *fakeUsers) PasswordHash(_ context.Context, username string) ([]byte, error) {
	hash, ok := f.hashes[username]
	if !ok {
		return nil, database.ErrNotFound
	}
	return hash, nil
}

func (f *fakeUsers) StoreToken(_ context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	f.tokens[username+tokenID+refreshTokenID] = expiration
	return nil
}

func (f *fakeUsers) ConsumeToken(_ context.Context, username, tokenID, refreshTokenID string) (time.Time, error) {
	k := username + tokenID + refreshTokenID
	exp, ok := f.tokens[k]
	if !ok {
		return time.Time{}, database.ErrTokenUsed
	}
	delete(f.tokens, k)
	return exp, nil
}

func TestCredentialsVerifier(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("lovelace"), bcrypt.MinCost)
	users := &fakeUsers{hashes: map[string][]byte{"ada": hash}, tokens: map[string]time.Time{}}
	cv := CredentialsVerifier(users)
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	if err := cv.ValidateUser("ada", "lovelace", "", r); err != nil {
		t.Fatalf("ValidateUser: %v", err)
	}
	if err := cv.ValidateUser("ada", "wrong", "", r); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if err := cv.ValidateUser("bob", "x", "", r); err == nil {
		t.Fatal("expected unknown user to fail")
	}

	if err := cv.StoreTokenID(oauth.UserToken, "ada", "t1", "r1"); err != nil {
		t.Fatalf("StoreTokenID: %v", err)
	}
	if err := cv.ValidateTokenID(oauth.UserToken, "ada", "t1", "r1"); err != nil {
		t.Fatalf("ValidateTokenID: %v", err)
	}
	if err := cv.ValidateTokenID(oauth.UserToken, "ada", "t1", "r1"); err == nil {
		t.Fatal("refresh tokens must be single use")
	}

	claims, _ := cv.AddClaims(oauth.UserToken, "ada", "t1", "", r)
	if claims["roles"] != "admin" {
		t.Fatalf("claims = %v", claims)
	}
}
