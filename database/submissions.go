package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/survey-builder/model"
)

// SaveSubmission stores one submission and bumps the survey's counter.
func (s *SQLite) SaveSubmission(ctx context.Context, id string, responses []model.ResponseRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "submission.begin_tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE survey SET submissions = submissions + 1
		WHERE id = ? AND is_published`,
		id,
	)
	if err != nil {
		return 0, errors.Wrap(err, "submission.count")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return 0, errors.Wrap(ErrNotFound, "submission")
	}

	var submissionId int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO submission (survey_id, created_at) VALUES (?, ?)
		RETURNING id`,
		id,
		time.Now().UTC(),
	).Scan(&submissionId)
	if err != nil {
		return 0, errors.Wrap(err, "submission.insert")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO response (submission_id, position, question_id, question_label, question_type, answer)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, errors.Wrap(err, "submission.responses.prepare")
	}
	defer stmt.Close()

	for i, r := range responses {
		_, err = stmt.ExecContext(ctx, submissionId, i, r.QuestionID, r.QuestionLabel, r.QuestionType, r.Answer)
		if err != nil {
			return 0, errors.Wrap(err, "submission.responses.insert")
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "submission.commit")
	}
	return submissionId, nil
}

// Submissions lists a survey's submissions, oldest first.
func (s *SQLite) Submissions(ctx context.Context, owner, id string) ([]model.Submission, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM survey WHERE owner = ? AND id = ?`,
		owner, id,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrNotFound, "submissions")
	}
	if err != nil {
		return nil, errors.Wrap(err, "submissions.survey")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id, s.created_at,
			r.question_id, r.question_label, r.question_type, r.answer
		FROM submission s
		INNER JOIN response r ON (s.id = r.submission_id)
		WHERE s.survey_id = ?
		ORDER BY s.id, r.position`,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "submissions")
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		sub := model.Submission{SurveyID: id}
		var r model.ResponseRecord
		err = rows.Scan(&sub.ID, &sub.CreatedAt, &r.QuestionID, &r.QuestionLabel, &r.QuestionType, &r.Answer)
		if err != nil {
			return nil, errors.Wrap(err, "submissions.scan")
		}

		last := len(submissions) - 1
		if last > -1 && submissions[last].ID == sub.ID {
			submissions[last].Responses = append(submissions[last].Responses, r)
		} else {
			sub.Responses = []model.ResponseRecord{r}
			submissions = append(submissions, sub)
		}
	}
	return submissions, errors.Wrap(rows.Err(), "submissions.rows")
}
