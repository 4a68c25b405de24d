package model

import (
	"math"
	"time"
)

// ResponseRecord is one answered (or unanswered) question of a submission.
type ResponseRecord struct {
	QuestionID    string       `json:"questionId"`
	QuestionLabel string       `json:"questionLabel"`
	QuestionType  QuestionType `json:"questionType"`
	Answer        string       `json:"answer"`
}

type Submission struct {
	ID        int64            `json:"id"`
	SurveyID  string           `json:"surveyId"`
	CreatedAt time.Time        `json:"createdAt"`
	Responses []ResponseRecord `json:"responses"`
}

type Stats struct {
	Visits         int     `json:"visits"`
	Submissions    int     `json:"submissions"`
	SubmissionRate float64 `json:"submissionRate"`
	BounceRate     float64 `json:"bounceRate"`
}

// ComputeStats derives conversion rates from raw counters. Submissions never
// count for more than visits, and both rates are percentages rounded to two
// decimals.
func ComputeStats(visits, submissions int) Stats {
	if visits < 0 {
		visits = 0
	}
	if submissions < 0 {
		submissions = 0
	}

	rate, bounce := 0.0, 100.0
	if visits > 0 {
		safe := submissions
		if safe > visits {
			safe = visits
		}
		rate = float64(safe) / float64(visits) * 100
		bounce = 100 - rate
	}

	return Stats{
		Visits:         visits,
		Submissions:    submissions,
		SubmissionRate: round2(clampPercent(rate)),
		BounceRate:     round2(clampPercent(bounce)),
	}
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
