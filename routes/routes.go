package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/routes/middlewares"
)

const reSurveyId = `{id:^[0-9a-fA-F-]+$}`

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	if app.BuilderDir != "" {
		root.
			With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
			Mount("/builder", servePrivateFiles("/builder", app.BuilderDir))
	}

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/s/{shareUrl}", PublicGetSurvey(app))
	api.Post("/s/{shareUrl}/submissions", PublicSubmitSurvey(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get("/surveys/"+reSurveyId, GetSurveyById(app))
		r.Put("/surveys/"+reSurveyId, UpdateSurvey(app))
		r.Patch("/surveys/"+reSurveyId, PatchSurvey(app))
		r.Delete("/surveys/"+reSurveyId, DeleteSurvey(app))

		r.Get("/surveys/"+reSurveyId+"/preview", GetSurveyPreview(app))
		r.Post("/surveys/"+reSurveyId+"/publish", PublishSurvey(app))
		r.Post("/surveys/"+reSurveyId+"/unpublish", UnpublishSurvey(app))
		r.Get("/surveys/"+reSurveyId+"/submissions", GetSurveySubmissions(app))

		r.Get("/stats", GetStats(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePrivateFiles(path, dir string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir(dir)))
}
