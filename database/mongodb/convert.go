package mongodb

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/model"
)

type questionDoc struct {
	ID          string   `bson:"id"`
	Type        string   `bson:"type"`
	Title       string   `bson:"title"`
	Description string   `bson:"description"`
	Placeholder string   `bson:"placeholder"`
	Required    bool     `bson:"required"`
	NextAction  string   `bson:"nextAction"`
	Options     []string `bson:"options,omitempty"`
}

type pageDoc struct {
	ID        string        `bson:"id"`
	Questions []questionDoc `bson:"questions"`
}

type surveyDoc struct {
	ID          string    `bson:"_id"`
	Owner       string    `bson:"owner"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	IsPublished bool      `bson:"is_published"`
	Pages       []pageDoc `bson:"pages"`
	ShareURL    string    `bson:"share_url"`
	Visits      int       `bson:"visits"`
	Submissions int       `bson:"submissions"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type responseDoc struct {
	QuestionID    string `bson:"question_id"`
	QuestionLabel string `bson:"question_label"`
	QuestionType  string `bson:"question_type"`
	Answer        string `bson:"answer"`
}

type submissionDoc struct {
	ID        int64         `bson:"_id"`
	SurveyID  string        `bson:"survey_id"`
	CreatedAt time.Time     `bson:"created_at"`
	Responses []responseDoc `bson:"responses"`
}

func toPageDocs(pages []model.Page) []pageDoc {
	out := make([]pageDoc, len(pages))
	for i, p := range pages {
		out[i] = pageDoc{ID: p.ID, Questions: make([]questionDoc, len(p.Questions))}
		for j, q := range p.Questions {
			out[i].Questions[j] = questionDoc{
				ID:          q.ID,
				Type:        string(q.Type),
				Title:       q.Title,
				Description: q.Description,
				Placeholder: q.Placeholder,
				Required:    q.Required,
				NextAction:  string(q.NextAction),
				Options:     append([]string(nil), q.Options...),
			}
		}
	}
	return out
}

func fromPageDocs(docs []pageDoc) []model.Page {
	out := make([]model.Page, len(docs))
	for i, p := range docs {
		out[i] = model.Page{ID: p.ID, Questions: make([]model.Question, len(p.Questions))}
		for j, q := range p.Questions {
			out[i].Questions[j] = model.Question{
				ID:          q.ID,
				Type:        model.QuestionType(q.Type),
				Title:       q.Title,
				Description: q.Description,
				Placeholder: q.Placeholder,
				Required:    q.Required,
				NextAction:  model.NextAction(q.NextAction),
				Options:     append([]string(nil), q.Options...),
			}
		}
	}
	return out
}

// toRecord hands pages over as a structured JSON array.
func toRecord(doc surveyDoc) (document.Record, error) {
	pages, err := json.Marshal(fromPageDocs(doc.Pages))
	if err != nil {
		return document.Record{}, err
	}
	description := doc.Description
	stats := model.ComputeStats(doc.Visits, doc.Submissions)
	return document.Record{
		ID:             doc.ID,
		Title:          doc.Title,
		Description:    &description,
		IsPublished:    doc.IsPublished,
		ShareURL:       doc.ShareURL,
		Pages:          pages,
		Visits:         doc.Visits,
		Submissions:    doc.Submissions,
		SubmissionRate: stats.SubmissionRate,
		BounceRate:     stats.BounceRate,
	}, nil
}

func toResponseDocs(records []model.ResponseRecord) []responseDoc {
	out := make([]responseDoc, len(records))
	for i, r := range records {
		out[i] = responseDoc{
			QuestionID:    r.QuestionID,
			QuestionLabel: r.QuestionLabel,
			QuestionType:  string(r.QuestionType),
			Answer:        r.Answer,
		}
	}
	return out
}

func fromSubmissionDoc(doc submissionDoc) model.Submission {
	sub := model.Submission{
		ID:        doc.ID,
		SurveyID:  doc.SurveyID,
		CreatedAt: doc.CreatedAt,
		Responses: make([]model.ResponseRecord, len(doc.Responses)),
	}
	for i, r := range doc.Responses {
		sub.Responses[i] = model.ResponseRecord{
			QuestionID:    r.QuestionID,
			QuestionLabel: r.QuestionLabel,
			QuestionType:  model.QuestionType(r.QuestionType),
			Answer:        r.Answer,
		}
	}
	return sub
}
