package routes

import (
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/navigation"
	"github.com/mbolis/survey-builder/questiontype"
)

type publicPage struct {
	ID     string               `json:"id"`
	Label  string               `json:"label"`
	Inputs []questiontype.Input `json:"inputs"`
}

type publicSurvey struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Pages       []publicPage `json:"pages"`
}

func PublicGetSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shareUrl := chi.URLParam(r, "shareUrl")

		rec, err := app.Surveys.PublishedSurvey(r.Context(), shareUrl)
		if err != nil {
			httpx.LogStoreError(w, "get_published_survey", shareUrl, err)
			return
		}
		doc := document.Normalize(rec)

		first, err := app.Visits.Visit(r.Context(), doc.ID, remoteIP(r))
		if err != nil {
			log.WithFields(log.Fields{"survey": doc.ID}).Warnf("visits.track: %v", err)
		}
		if first {
			if err = app.Surveys.IncrementVisits(r.Context(), doc.ID); err != nil {
				log.WithFields(log.Fields{"survey": doc.ID}).Warnf("db.increment_visits: %v", err)
			}
		}

		survey := publicSurvey{
			ID:          doc.ID,
			Title:       doc.DisplayTitle(),
			Description: doc.Description,
			Pages:       make([]publicPage, len(doc.Pages)),
		}
		for i, p := range doc.Pages {
			inputs := make([]questiontype.Input, len(p.Questions))
			for j, q := range p.Questions {
				inputs[j] = app.Types.Describe(q, j)
			}
			survey.Pages[i] = publicPage{
				ID:     p.ID,
				Label:  navigation.PageLabel(i, len(doc.Pages)),
				Inputs: inputs,
			}
		}

		render.JSON(w, r, survey)
	}
}

// inFlight tracks the keys of submissions currently being saved.
type inFlight struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newInFlight() *inFlight {
	return &inFlight{keys: make(map[string]bool)}
}

// acquire reports false when key is already held.
func (f *inFlight) acquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false
	}
	f.keys[key] = true
	return true
}

func (f *inFlight) release(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func PublicSubmitSurvey(app app.App) http.HandlerFunc {
	submitting := newInFlight()

	return func(w http.ResponseWriter, r *http.Request) {
		shareUrl := chi.URLParam(r, "shareUrl")

		submission := submitRequest{}
		err := render.DecodeJSON(r.Body, &submission)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		rec, err := app.Surveys.PublishedSurvey(r.Context(), shareUrl)
		if err != nil {
			httpx.LogStoreError(w, "get_published_survey", shareUrl, err)
			return
		}
		doc := document.Normalize(rec)

		session := navigation.NewSession(doc, app.Types)
		for questionId, value := range submission.Answers {
			if err = session.Answer(questionId, value); err != nil {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "submission.answer", "%s", err)
				return
			}
		}
		records, err := session.Complete()
		if err != nil {
			httpx.LogInvalid(w, r, "submission.validate", err)
			return
		}

		// one submission per survey and ip at a time
		key := doc.ID + "|" + remoteIP(r)
		if !submitting.acquire(key) {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "ip.submitting")
			return
		}
		defer submitting.release(key)

		submissionId, err := app.Surveys.SaveSubmission(r.Context(), doc.ID, records)
		if err != nil {
			httpx.LogStoreError(w, "insert_submission", doc.ID, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": submissionId,
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
