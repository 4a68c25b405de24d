package app

import (
	"github.com/go-chi/oauth"

	"github.com/mbolis/survey-builder/config"
	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/questiontype"
	"github.com/mbolis/survey-builder/visits"
)

type App struct {
	Surveys database.Store
	Visits  visits.Tracker
	Types   *questiontype.Registry
	*oauth.BearerServer
	config.Config
}
