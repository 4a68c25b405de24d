// Package mongodb stores surveys as structured documents in MongoDB.
package mongodb

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-builder/database"
	"github.com/mbolis/survey-builder/document"
	"github.com/mbolis/survey-builder/model"
)

const defaultDatabase = "surveybuilder"

type Store struct {
	client      *mongo.Client
	surveys     *mongo.Collection
	submissions *mongo.Collection
	users       *mongo.Collection
	tokens      *mongo.Collection
	counters    *mongo.Collection
}

var _ database.Store = (*Store)(nil)

// Open connects to uri. The database named in the uri is used, or
// "surveybuilder" when it names none.
func Open(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb.uri")
	}
	name := cs.Database
	if name == "" {
		name = defaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongodb.connect")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, errors.Wrap(err, "mongodb.ping")
	}

	db := client.Database(name)
	s := &Store{
		client:      client,
		surveys:     db.Collection("surveys"),
		submissions: db.Collection("submissions"),
		users:       db.Collection("users"),
		tokens:      db.Collection("tokens"),
		counters:    db.Collection("counters"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.surveys.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "share_url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "updated_at", Value: -1}}},
	})
	if err != nil {
		return errors.Wrap(err, "mongodb.indexes.surveys")
	}
	_, err = s.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "_id", Value: 1}},
	})
	return errors.Wrap(err, "mongodb.indexes.submissions")
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func ownedBy(owner, id string) bson.M {
	return bson.M{"_id": id, "owner": owner}
}

func (s *Store) CreateSurvey(ctx context.Context, owner string, doc model.Survey) (string, error) {
	now := time.Now().UTC()
	rec := surveyDoc{
		ID:          model.NewID(),
		Owner:       owner,
		Title:       doc.Title,
		Description: doc.Description,
		Pages:       toPageDocs(doc.Pages),
		ShareURL:    model.NewShareURL(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.surveys.InsertOne(ctx, rec); err != nil {
		return "", errors.Wrap(err, "survey.create")
	}
	return rec.ID, nil
}

func (s *Store) ListSurveys(ctx context.Context, owner string) ([]database.Summary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"pages": 0})
	cursor, err := s.surveys.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "survey.list")
	}
	defer cursor.Close(ctx)

	var docs []surveyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "survey.list.decode")
	}

	surveys := make([]database.Summary, len(docs))
	for i, d := range docs {
		surveys[i] = database.Summary{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			IsPublished: d.IsPublished,
			ShareURL:    d.ShareURL,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
			Stats:       model.ComputeStats(d.Visits, d.Submissions),
		}
	}
	return surveys, nil
}

func (s *Store) findOne(ctx context.Context, code string, filter bson.M) (surveyDoc, error) {
	var doc surveyDoc
	err := s.surveys.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, errors.Wrap(database.ErrNotFound, code)
	}
	return doc, errors.Wrap(err, code)
}

func (s *Store) LoadSurvey(ctx context.Context, owner, id string) (document.Record, error) {
	doc, err := s.findOne(ctx, "survey.load", ownedBy(owner, id))
	if err != nil {
		return document.Record{}, err
	}
	rec, err := toRecord(doc)
	return rec, errors.Wrap(err, "survey.load.encode")
}

func (s *Store) PublishedSurvey(ctx context.Context, shareURL string) (document.Record, error) {
	doc, err := s.findOne(ctx, "survey.published", bson.M{"share_url": shareURL, "is_published": true})
	if err != nil {
		return document.Record{}, err
	}
	rec, err := toRecord(doc)
	return rec, errors.Wrap(err, "survey.published.encode")
}

func (s *Store) SaveSurvey(ctx context.Context, owner string, doc model.Survey) (string, error) {
	if doc.ID == "" {
		return s.CreateSurvey(ctx, owner, doc)
	}

	filter := ownedBy(owner, doc.ID)
	filter["is_published"] = false
	res, err := s.surveys.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"pages":       toPageDocs(doc.Pages),
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return "", errors.Wrap(err, "survey.save")
	}
	if res.MatchedCount == 0 {
		// tell a published survey apart from a missing one
		if _, err := s.findOne(ctx, "survey.save", ownedBy(owner, doc.ID)); err != nil {
			return "", err
		}
		return "", errors.Wrap(database.ErrPublished, "survey.save")
	}
	return doc.ID, nil
}

func (s *Store) PublishSurvey(ctx context.Context, owner, id string) error {
	doc, err := s.findOne(ctx, "survey.publish", ownedBy(owner, id))
	if err != nil {
		return err
	}
	if (model.Survey{Pages: fromPageDocs(doc.Pages)}).QuestionCount() == 0 {
		return errors.Wrap(database.ErrNoQuestions, "survey.publish")
	}
	return s.setPublished(ctx, "survey.publish", owner, id, true)
}

func (s *Store) UnpublishSurvey(ctx context.Context, owner, id string) error {
	return s.setPublished(ctx, "survey.unpublish", owner, id, false)
}

func (s *Store) setPublished(ctx context.Context, code, owner, id string, published bool) error {
	res, err := s.surveys.UpdateOne(ctx, ownedBy(owner, id), bson.M{"$set": bson.M{
		"is_published": published,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return errors.Wrap(err, code)
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(database.ErrNotFound, code)
	}
	return nil
}

func (s *Store) DeleteSurvey(ctx context.Context, owner, id string) error {
	res, err := s.surveys.DeleteOne(ctx, ownedBy(owner, id))
	if err != nil {
		return errors.Wrap(err, "survey.delete")
	}
	if res.DeletedCount == 0 {
		return errors.Wrap(database.ErrNotFound, "survey.delete")
	}
	_, err = s.submissions.DeleteMany(ctx, bson.M{"survey_id": id})
	return errors.Wrap(err, "survey.delete.submissions")
}

func (s *Store) IncrementVisits(ctx context.Context, id string) error {
	res, err := s.surveys.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"visits": 1}})
	if err != nil {
		return errors.Wrap(err, "survey.visit")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(database.ErrNotFound, "survey.visit")
	}
	return nil
}

const submissionCounter = "submission"

func publishedByID(id string) bson.M {
	return bson.M{"_id": id, "is_published": true}
}

// nextSubmissionID hands out increasing submission ids from a shared
// counter document, so concurrent writers never collide.
func (s *Store) nextSubmissionID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": submissionCounter},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, errors.Wrap(err, "submission.id")
}

// SaveSubmission inserts the submission before counting it. If the survey
// stops being published in between, the insert is rolled back.
func (s *Store) SaveSubmission(ctx context.Context, id string, responses []model.ResponseRecord) (int64, error) {
	err := s.surveys.FindOne(ctx, publishedByID(id), options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, errors.Wrap(database.ErrNotFound, "submission")
	}
	if err != nil {
		return 0, errors.Wrap(err, "submission")
	}

	subID, err := s.nextSubmissionID(ctx)
	if err != nil {
		return 0, err
	}
	sub := submissionDoc{
		ID:        subID,
		SurveyID:  id,
		CreatedAt: time.Now().UTC(),
		Responses: toResponseDocs(responses),
	}
	if _, err := s.submissions.InsertOne(ctx, sub); err != nil {
		return 0, errors.Wrap(err, "submission.insert")
	}

	res, err := s.surveys.UpdateOne(ctx, publishedByID(id), bson.M{"$inc": bson.M{"submissions": 1}})
	if err == nil && res.MatchedCount == 0 {
		err = database.ErrNotFound
	}
	if err != nil {
		if _, delErr := s.submissions.DeleteOne(ctx, bson.M{"_id": sub.ID}); delErr != nil {
			return 0, multierror.Append(errors.Wrap(err, "submission.count"), errors.Wrap(delErr, "submission.rollback"))
		}
		return 0, errors.Wrap(err, "submission.count")
	}
	return sub.ID, nil
}

func (s *Store) Submissions(ctx context.Context, owner, id string) ([]model.Submission, error) {
	if _, err := s.findOne(ctx, "submissions", ownedBy(owner, id)); err != nil {
		return nil, err
	}

	cursor, err := s.submissions.Find(ctx, bson.M{"survey_id": id}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "submissions")
	}
	defer cursor.Close(ctx)

	var docs []submissionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "submissions.decode")
	}
	submissions := make([]model.Submission, len(docs))
	for i, d := range docs {
		submissions[i] = fromSubmissionDoc(d)
	}
	return submissions, nil
}

func (s *Store) OwnerStats(ctx context.Context, owner string) (model.Stats, error) {
	cursor, err := s.surveys.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner": owner}}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"visits":      bson.M{"$sum": "$visits"},
			"submissions": bson.M{"$sum": "$submissions"},
		}}},
	})
	if err != nil {
		return model.Stats{}, errors.Wrap(err, "survey.stats")
	}
	defer cursor.Close(ctx)

	var totals []struct {
		Visits      int `bson:"visits"`
		Submissions int `bson:"submissions"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return model.Stats{}, errors.Wrap(err, "survey.stats.decode")
	}
	if len(totals) == 0 {
		return model.ComputeStats(0, 0), nil
	}
	return model.ComputeStats(totals[0].Visits, totals[0].Submissions), nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "user.create.hash")
	}
	_, err = s.users.UpdateByID(ctx, username,
		bson.M{"$set": bson.M{"password_hash": hash}},
		options.Update().SetUpsert(true),
	)
	return errors.Wrap(err, "user.create")
}

func (s *Store) PasswordHash(ctx context.Context, username string) ([]byte, error) {
	var user struct {
		PasswordHash []byte `bson:"password_hash"`
	}
	err := s.users.FindOne(ctx, bson.M{"_id": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrap(database.ErrNotFound, "user.password")
	}
	return user.PasswordHash, errors.Wrap(err, "user.password")
}

func tokenFilter(username, tokenID, refreshTokenID string) bson.M {
	return bson.M{"username": username, "token_id": tokenID, "refresh_token_id": refreshTokenID}
}

func (s *Store) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	doc := tokenFilter(username, tokenID, refreshTokenID)
	doc["expiration"] = expiration.UTC()
	_, err := s.tokens.InsertOne(ctx, doc)
	return errors.Wrap(err, "token.store")
}

func (s *Store) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (time.Time, error) {
	var token struct {
		Expiration time.Time `bson:"expiration"`
	}
	err := s.tokens.FindOneAndDelete(ctx, tokenFilter(username, tokenID, refreshTokenID)).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return token.Expiration, errors.Wrap(database.ErrTokenUsed, "token.consume")
	}
	return token.Expiration, errors.Wrap(err, "token.consume")
}
