package routes

import (
	"net/http"
	"net/url"
	"regexp"

	"github.com/mbolis/survey-builder/app"
	"github.com/mbolis/survey-builder/httpx"
	"github.com/mbolis/survey-builder/log"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		req := httpx.GrantRequest(r, url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		})
		app.UserCredentials(w, req)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		req := httpx.GrantRequest(r, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		})
		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		resp.Flush(w)
	}
}
