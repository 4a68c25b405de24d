package builder

import (
	"github.com/goccy/go-json"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/model"
)

// Intent is a serializable request for one store operation, as posted by an
// editing client. Only the fields the operation needs are read.
type Intent struct {
	Op       string `json:"op"`
	Page     int    `json:"page,omitempty"`
	Question int    `json:"question,omitempty"`
	Option   int    `json:"option,omitempty"`
	Field    string `json:"field,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// Dispatch runs the operation named by in.Op and reports whether it was
// applied. Unknown operations and values of the wrong shape are not applied.
func (s *Store) Dispatch(in Intent) bool {
	switch in.Op {
	case "setSurvey":
		doc, ok := surveyValue(in.Value)
		if !ok {
			return false
		}
		s.SetSurvey(doc)
		return true
	case "updateSurveyMeta":
		v, ok := in.Value.(string)
		return ok && s.UpdateSurveyMeta(MetaField(in.Field), v)
	case "addPage":
		s.AddPage()
		return true
	case "deletePage":
		return s.DeletePage(in.Page)
	case "addQuestion":
		return s.AddQuestion(in.Page)
	case "deleteQuestion":
		return s.DeleteQuestion(in.Page, in.Question)
	case "updateQuestion":
		return s.UpdateQuestion(in.Page, in.Question, QuestionField(in.Field), in.Value)
	case "addOption":
		return s.AddOption(in.Page, in.Question)
	case "updateOption":
		v, ok := in.Value.(string)
		return ok && s.UpdateOption(in.Page, in.Question, in.Option, v)
	case "deleteOption":
		return s.DeleteOption(in.Page, in.Question, in.Option)
	case "setActivePageIndex":
		s.SetActivePageIndex(in.Page)
		return true
	case "setActiveView":
		v, ok := in.Value.(string)
		return ok && s.SetActiveView(model.ActiveView(v))
	case "setDeviceView":
		v, ok := in.Value.(string)
		return ok && s.SetDeviceView(model.DeviceView(v))
	case "navigatePreview":
		v, ok := in.Value.(string)
		return ok && s.NavigatePreview(model.Direction(v))
	}
	return false
}

// DispatchAll runs intents in order and returns how many were applied.
func (s *Store) DispatchAll(intents []Intent) int {
	n := 0
	for _, in := range intents {
		if s.Dispatch(in) {
			n++
		}
	}
	return n
}

// surveyValue accepts a model.Survey or any value that decodes as a
// persisted survey record, such as the map a JSON batch yields.
func surveyValue(v any) (model.Survey, bool) {
	switch v := v.(type) {
	case model.Survey:
		return v, true
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return model.Survey{}, false
		}
		doc, err := document.Decode(data)
		return doc, err == nil
	}
	return model.Survey{}, false
}
