package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/log"
	"github.com/mbolis/survey-builder/questiontype"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Maps a storage error to its response: 404 for missing surveys,
// 409 for lifecycle conflicts, 500 otherwise
func LogStoreError(w http.ResponseWriter, code string, id any, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		LogNotFound(w, code, id)
	case errors.Is(err, database.ErrPublished), errors.Is(err, database.ErrNoQuestions):
		LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, "%s", rootCause(err))
	default:
		LogInternalError(w, "db."+code, err)
	}
}

func rootCause(err error) error {
	for _, sentinel := range []error{database.ErrPublished, database.ErrNoQuestions} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

type FieldError struct {
	QuestionID string `json:"questionId"`
	Label      string `json:"label"`
	Message    string `json:"message"`
}

// Will log a debug message, and send status 422 with one entry
// per failing question
func LogInvalid(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Debugf("%s: %v", code, err)

	fields := []FieldError{}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			fields = append(fields, fieldError(e))
		}
	} else {
		fields = append(fields, fieldError(err))
	}

	render.Status(r, http.StatusUnprocessableEntity)
	render.JSON(w, r, map[string]any{
		"error":  "invalid submission",
		"fields": fields,
	})
}

func fieldError(err error) FieldError {
	var qerr *questiontype.QuestionError
	if errors.As(err, &qerr) {
		return FieldError{QuestionID: qerr.QuestionID, Label: qerr.Label, Message: qerr.Err.Error()}
	}
	return FieldError{Message: err.Error()}
}
