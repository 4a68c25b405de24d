package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/model"
)

func (s *SQLite) CreateSurvey(ctx context.Context, owner string, doc model.Survey) (string, error) {
	pages, err := document.EncodePages(doc.Pages)
	if err != nil {
		return "", errors.Wrap(err, "survey.create.encode_pages")
	}

	id := model.NewID()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO survey (id, owner, title, description, pages, share_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		owner,
		doc.Title,
		doc.Description,
		pages,
		model.NewShareURL(),
		now,
		now,
	)
	if err != nil {
		return "", errors.Wrap(err, "survey.create")
	}
	return id, nil
}

func (s *SQLite) ListSurveys(ctx context.Context, owner string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, title, COALESCE(description, ''), is_published, share_url,
			visits, submissions, created_at, updated_at
		FROM survey
		WHERE owner = ?
		ORDER BY updated_at DESC, id`,
		owner,
	)
	if err != nil {
		return nil, errors.Wrap(err, "survey.list")
	}
	defer rows.Close()

	surveys := []Summary{}
	for rows.Next() {
		var sum Summary
		var visits, submissions int
		err = rows.Scan(
			&sum.ID, &sum.Title, &sum.Description, &sum.IsPublished, &sum.ShareURL,
			&visits, &submissions, &sum.CreatedAt, &sum.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "survey.list.scan")
		}
		sum.Stats = model.ComputeStats(visits, submissions)
		surveys = append(surveys, sum)
	}
	return surveys, errors.Wrap(rows.Err(), "survey.list.rows")
}

func (s *SQLite) LoadSurvey(ctx context.Context, owner, id string) (document.Record, error) {
	return s.loadRecord(ctx, "survey.load", `
		SELECT id, title, description, is_published, share_url, pages, visits, submissions
		FROM survey
		WHERE owner = ? AND id = ?`,
		owner, id,
	)
}

func (s *SQLite) PublishedSurvey(ctx context.Context, shareURL string) (document.Record, error) {
	return s.loadRecord(ctx, "survey.published", `
		SELECT id, title, description, is_published, share_url, pages, visits, submissions
		FROM survey
		WHERE share_url = ? AND is_published`,
		shareURL,
	)
}

func (s *SQLite) loadRecord(ctx context.Context, code, query string, args ...any) (document.Record, error) {
	var rec document.Record
	var description sql.NullString
	var pages string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.Title, &description, &rec.IsPublished, &rec.ShareURL,
		&pages, &rec.Visits, &rec.Submissions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, errors.Wrap(ErrNotFound, code)
	}
	if err != nil {
		return rec, errors.Wrap(err, code)
	}

	if description.Valid {
		rec.Description = &description.String
	}
	rec.Pages = document.TextPages(pages)
	stats := model.ComputeStats(rec.Visits, rec.Submissions)
	rec.SubmissionRate, rec.BounceRate = stats.SubmissionRate, stats.BounceRate
	return rec, nil
}

func (s *SQLite) SaveSurvey(ctx context.Context, owner string, doc model.Survey) (string, error) {
	if doc.ID == "" {
		return s.CreateSurvey(ctx, owner, doc)
	}

	pages, err := document.EncodePages(doc.Pages)
	if err != nil {
		return "", errors.Wrap(err, "survey.save.encode_pages")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "survey.save.begin_tx")
	}
	defer tx.Rollback()

	var published bool
	err = tx.QueryRowContext(ctx, `
		SELECT is_published FROM survey
		WHERE owner = ? AND id = ?`,
		owner, doc.ID,
	).Scan(&published)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrap(ErrNotFound, "survey.save")
	}
	if err != nil {
		return "", errors.Wrap(err, "survey.save.check")
	}
	if published {
		return "", errors.Wrap(ErrPublished, "survey.save")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE survey
		SET
			title = ?,
			description = ?,
			pages = ?,
			updated_at = ?
		WHERE owner = ? AND id = ?`,
		doc.Title,
		doc.Description,
		pages,
		time.Now().UTC(),
		owner,
		doc.ID,
	)
	if err != nil {
		return "", errors.Wrap(err, "survey.save")
	}

	if err = tx.Commit(); err != nil {
		return "", errors.Wrap(err, "survey.save.commit")
	}
	return doc.ID, nil
}

// PublishSurvey requires at least one question in the stored pages.
func (s *SQLite) PublishSurvey(ctx context.Context, owner, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "survey.publish.begin_tx")
	}
	defer tx.Rollback()

	var text string
	err = tx.QueryRowContext(ctx, `
		SELECT pages FROM survey
		WHERE owner = ? AND id = ?`,
		owner, id,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, "survey.publish")
	}
	if err != nil {
		return errors.Wrap(err, "survey.publish.pages")
	}

	pages, err := document.ParsePages([]byte(text))
	if err != nil || (model.Survey{Pages: pages}).QuestionCount() == 0 {
		return errors.Wrap(ErrNoQuestions, "survey.publish")
	}

	if err = s.setPublished(ctx, tx, owner, id, true); err != nil {
		return errors.Wrap(err, "survey.publish")
	}
	return errors.Wrap(tx.Commit(), "survey.publish.commit")
}

func (s *SQLite) UnpublishSurvey(ctx context.Context, owner, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "survey.unpublish.begin_tx")
	}
	defer tx.Rollback()

	if err = s.setPublished(ctx, tx, owner, id, false); err != nil {
		return errors.Wrap(err, "survey.unpublish")
	}
	return errors.Wrap(tx.Commit(), "survey.unpublish.commit")
}

func (*SQLite) setPublished(ctx context.Context, tx *sql.Tx, owner, id string, published bool) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE survey
		SET is_published = ?, updated_at = ?
		WHERE owner = ? AND id = ?`,
		published,
		time.Now().UTC(),
		owner,
		id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteSurvey(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM survey WHERE owner = ? AND id = ?`,
		owner, id,
	)
	if err != nil {
		return errors.Wrap(err, "survey.delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "survey.delete.verify")
	}
	if n < 1 {
		return errors.Wrap(ErrNotFound, "survey.delete")
	}
	return nil
}

func (s *SQLite) IncrementVisits(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE survey SET visits = visits + 1 WHERE id = ?`,
		id,
	)
	if err != nil {
		return errors.Wrap(err, "survey.visit")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return errors.Wrap(ErrNotFound, "survey.visit")
	}
	return nil
}

func (s *SQLite) OwnerStats(ctx context.Context, owner string) (model.Stats, error) {
	var visits, submissions int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(visits), 0), COALESCE(SUM(submissions), 0)
		FROM survey
		WHERE owner = ?`,
		owner,
	).Scan(&visits, &submissions)
	if err != nil {
		return model.Stats{}, errors.Wrap(err, "survey.stats")
	}
	return model.ComputeStats(visits, submissions), nil
}
