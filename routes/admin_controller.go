package routes

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/builder"
	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/model"
	"github.com/mbolis/survey-builder/navigation"
	"github.com/mbolis/survey-builder/routes/middlewares"
)

const minTitleLength = 4

type createSurveyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := createSurveyRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		title := strings.TrimSpace(req.Title)
		if len([]rune(title)) < minTitleLength {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.title",
				"title must be at least %d characters", minTitleLength)
			return
		}

		doc := document.Sanitize(model.Survey{
			Title:       title,
			Description: strings.TrimSpace(req.Description),
		})
		surveyId, err := app.Surveys.CreateSurvey(r.Context(), middlewares.Owner(r), doc)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": surveyId,
		})
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Surveys.ListSurveys(r.Context(), middlewares.Owner(r))
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}
		if surveys == nil {
			surveys = []database.Summary{}
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		rec, err := app.Surveys.LoadSurvey(r.Context(), middlewares.Owner(r), surveyId)
		if err != nil {
			httpx.LogStoreError(w, "get_survey", surveyId, err)
			return
		}

		render.JSON(w, r, document.Normalize(rec))
	}
}

// GetSurveyPreview renders one page of the stored survey the way the
// builder's live preview shows it.
func GetSurveyPreview(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		page := 0
		if p := r.URL.Query().Get("page"); p != "" {
			var err error
			page, err = strconv.Atoi(p)
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.page")
				return
			}
		}
		device := model.DeviceDesktop
		if d := model.DeviceView(r.URL.Query().Get("device")); d != "" {
			if !d.Valid() {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.device")
				return
			}
			device = d
		}

		rec, err := app.Surveys.LoadSurvey(r.Context(), middlewares.Owner(r), surveyId)
		if err != nil {
			httpx.LogStoreError(w, "get_survey", surveyId, err)
			return
		}

		preview, ok := navigation.Derive(document.Normalize(rec), page, device, app.Types)
		if !ok {
			httpx.LogNotFound(w, "get_survey.page", page)
			return
		}
		render.JSON(w, r, preview)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.read_body")
			return
		}
		survey, err := document.Decode(body)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}
		survey.ID = surveyId

		_, err = app.Surveys.SaveSurvey(r.Context(), middlewares.Owner(r), document.Sanitize(survey))
		if err != nil {
			httpx.LogStoreError(w, "update_survey", surveyId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// PatchSurvey applies a batch of builder intents to the stored survey and
// saves the result.
func PatchSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		intents := []builder.Intent{}
		err := render.DecodeJSON(r.Body, &intents)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		editor := builder.NewEditor(nil, database.Scope{Store: app.Surveys, Owner: middlewares.Owner(r)})
		if err = editor.Load(r.Context(), surveyId); err != nil {
			httpx.LogStoreError(w, "patch_survey.load", surveyId, err)
			return
		}

		applied := editor.Store.DispatchAll(intents)
		log.WithFields(log.Fields{"survey": surveyId, "intents": len(intents), "applied": applied}).
			Debug("patch_survey.dispatch")

		editor.Store.SetSurvey(document.Sanitize(editor.Store.Survey()))
		if _, err = editor.Save(r.Context()); err != nil {
			httpx.LogStoreError(w, "patch_survey.save", surveyId, err)
			return
		}

		state := editor.Store.State()
		preview, _ := navigation.Derive(state.Survey, state.UI.ActivePageIndex, state.UI.DeviceView, app.Types)
		render.JSON(w, r, map[string]any{
			"applied": applied,
			"survey":  state.Survey,
			"ui":      state.UI,
			"preview": preview,
		})
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		err := app.Surveys.DeleteSurvey(r.Context(), middlewares.Owner(r), surveyId)
		if err != nil {
			httpx.LogStoreError(w, "delete_survey", surveyId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func PublishSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		editor := builder.NewEditor(nil, database.Scope{Store: app.Surveys, Owner: middlewares.Owner(r)})
		if err := editor.Load(r.Context(), surveyId); err != nil {
			httpx.LogStoreError(w, "publish_survey.load", surveyId, err)
			return
		}
		if err := editor.Publish(r.Context()); err != nil {
			if errors.Is(err, builder.ErrNotPublishable) {
				httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "publish_survey", "%s", database.ErrNoQuestions)
				return
			}
			httpx.LogStoreError(w, "publish_survey", surveyId, err)
			return
		}

		render.JSON(w, r, editor.Store.Survey())
	}
}

func UnpublishSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		editor := builder.NewEditor(nil, database.Scope{Store: app.Surveys, Owner: middlewares.Owner(r)})
		if err := editor.Load(r.Context(), surveyId); err != nil {
			httpx.LogStoreError(w, "unpublish_survey.load", surveyId, err)
			return
		}
		if err := editor.Unpublish(r.Context()); err != nil {
			httpx.LogStoreError(w, "unpublish_survey", surveyId, err)
			return
		}

		render.JSON(w, r, editor.Store.Survey())
	}
}

func GetSurveySubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId := chi.URLParam(r, "id")

		submissions, err := app.Surveys.Submissions(r.Context(), middlewares.Owner(r), surveyId)
		if err != nil {
			httpx.LogStoreError(w, "get_submissions", surveyId, err)
			return
		}
		if submissions == nil {
			submissions = []model.Submission{}
		}

		render.JSON(w, r, map[string]any{
			"submissions": submissions,
		})
	}
}

func GetStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := app.Surveys.OwnerStats(r.Context(), middlewares.Owner(r))
		if err != nil {
			httpx.LogInternalError(w, "db.get_stats", err)
			return
		}

		render.JSON(w, r, stats)
	}
}
