// internal/storage/mongo_store.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

// MongoStore keeps jobs and articles in the "jobs" and "articles" collections.
type MongoStore struct {
	client   *mongo.Client
	jobs     *mongo.Collection
	articles *mongo.Collection
	logger   *utils.Logger
}

// NewMongoStore connects, pings and ensures indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to connect to MongoDB", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.NewUnavailableError("can't ping MongoDB", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		jobs:     db.Collection("jobs"),
		articles: db.Collection("articles"),
		logger:   utils.GetLogger(),
	}
	s.createIndexes(connectCtx)
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.jobs, mongo.IndexModel{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.articles, mongo.IndexModel{Keys: bson.D{{Key: "article_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{s.articles, mongo.IndexModel{Keys: bson.D{{Key: "job_id", Value: 1}}}},
		{s.articles, mongo.IndexModel{Keys: bson.D{{Key: "keywords", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			s.logger.Warn("failed to create index", map[string]interface{}{
				"collection": idx.coll.Name(),
				"error":      err.Error(),
			})
		}
	}
}

func (s *MongoStore) SaveJob(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if _, err := s.jobs.InsertOne(ctx, job); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictError(fmt.Sprintf("job %s already exists", job.JobID), err)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateJob(ctx context.Context, jobID string, update JobUpdate) error {
	set := bson.M{
		"status":     update.Status,
		"step":       update.Step,
		"progress":   update.Progress,
		"updated_at": time.Now().UTC(),
	}
	if update.Error != "" {
		set["error"] = update.Error
	}
	if update.Result != nil {
		set["result"] = update.Result
	}
	res, err := s.jobs.UpdateOne(ctx, bson.M{"job_id": jobID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("job %s not found", jobID), nil)
	}
	return nil
}

func (s *MongoStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.jobs.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("job %s not found", jobID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return &job, nil
}

func (s *MongoStore) SaveArticles(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	docs := make([]interface{}, len(articles))
	for i := range articles {
		if articles[i].CreatedAt.IsZero() {
			articles[i].CreatedAt = time.Now().UTC()
		}
		docs[i] = articles[i]
	}
	if _, err := s.articles.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert articles: %w", err)
	}
	return nil
}

func (s *MongoStore) GetArticle(ctx context.Context, articleID string) (*models.Article, error) {
	var article models.Article
	err := s.articles.FindOne(ctx, bson.M{"article_id": articleID}).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("article %s not found", articleID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find article: %w", err)
	}
	return &article, nil
}

func (s *MongoStore) ListArticles(ctx context.Context, limit int) ([]models.Article, error) {
	return s.find(ctx, bson.M{}, int64(listLimit(limit)))
}

func (s *MongoStore) ListJobArticles(ctx context.Context, jobID string) ([]models.Article, error) {
	articles, err := s.find(ctx, bson.M{"job_id": jobID}, 0)
	if err != nil {
		return nil, err
	}
	sortArticles(articles)
	return articles, nil
}

func (s *MongoStore) FindByKeyword(ctx context.Context, keyword string, limit int) ([]models.Article, error) {
	if limit <= 0 {
		limit = 20
	}
	filter := bson.M{"keywords": primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}}
	return s.find(ctx, filter, int64(limit))
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, limit int64) ([]models.Article, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	defer cursor.Close(ctx)

	articles := []models.Article{}
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return articles, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
