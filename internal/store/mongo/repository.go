// Package mongo stores history in MongoDB collections prediction_history and
// simplify_history.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	driver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	PredictionCollection = "prediction_history"
	SimplifyCollection   = "simplify_history"
)

type predictionDoc struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	Text       string        `bson:"text"`
	Score      float64       `bson:"score"`
	Label      string        `bson:"label"`
	Simplified *string       `bson:"simplified"`
	Timestamp  time.Time     `bson:"timestamp"`
	User       string        `bson:"user"`
}

type simplificationDoc struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	UserID         string        `bson:"user_id"`
	OriginalText   string        `bson:"original_text"`
	SimplifiedText string        `bson:"simplified_text"`
	Method         string        `bson:"method"`
	CreatedAt      time.Time     `bson:"created_at"`
}

func (d predictionDoc) toModel() models.PredictionRecord {
	return models.PredictionRecord{
		ID:         d.ID.Hex(),
		Text:       d.Text,
		Score:      d.Score,
		Label:      models.Label(d.Label),
		Simplified: d.Simplified,
		Timestamp:  d.Timestamp.UTC(),
		User:       d.User,
	}
}

type Repository struct {
	client          *driver.Client
	predictions     *driver.Collection
	simplifications *driver.Collection
	timeout         time.Duration
	logger          *logrus.Logger
}

// NewRepository connects to MongoDB. The driver dials lazily; call Ping to
// verify the server is reachable.
func NewRepository(cfg *config.MongoConfig, logger *logrus.Logger) (*Repository, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetServerSelectionTimeout(cfg.Timeout).
		SetAppName("readability-api")

	client, err := driver.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	return &Repository{
		client:          client,
		predictions:     db.Collection(PredictionCollection),
		simplifications: db.Collection(SimplifyCollection),
		timeout:         cfg.Timeout,
		logger:          logger,
	}, nil
}

func (r *Repository) Name() string {
	return "mongo"
}

func (r *Repository) InsertPrediction(ctx context.Context, record *models.PredictionRecord) error {
	doc := predictionDoc{
		ID:         bson.NewObjectID(),
		Text:       record.Text,
		Score:      record.Score,
		Label:      string(record.Label),
		Simplified: record.Simplified,
		Timestamp:  record.Timestamp,
		User:       record.User,
	}
	if _, err := r.predictions.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", PredictionCollection, err)
	}
	record.ID = doc.ID.Hex()
	return nil
}

func (r *Repository) FindPredictionsByUser(ctx context.Context, user string) ([]models.PredictionRecord, error) {
	return r.findPredictions(ctx, bson.D{{Key: "user", Value: user}})
}

func (r *Repository) AllPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	return r.findPredictions(ctx, bson.D{})
}

func (r *Repository) findPredictions(ctx context.Context, filter bson.D) ([]models.PredictionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := r.predictions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", PredictionCollection, err)
	}

	var docs []predictionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PredictionCollection, err)
	}

	records := make([]models.PredictionRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toModel())
	}
	return records, nil
}

func (r *Repository) DeletePredictionsByUser(ctx context.Context, user string) (int64, error) {
	res, err := r.predictions.DeleteMany(ctx, bson.D{{Key: "user", Value: user}})
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", PredictionCollection, err)
	}
	return res.DeletedCount, nil
}

func (r *Repository) InsertSimplification(ctx context.Context, record *models.SimplificationRecord) error {
	doc := simplificationDoc{
		ID:             bson.NewObjectID(),
		UserID:         record.UserID,
		OriginalText:   record.OriginalText,
		SimplifiedText: record.SimplifiedText,
		Method:         string(record.Method),
		CreatedAt:      record.CreatedAt,
	}
	if _, err := r.simplifications.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", SimplifyCollection, err)
	}
	record.ID = doc.ID.Hex()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the lookup indexes on both collections.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.predictions.Indexes().CreateMany(ctx, []driver.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create %s indexes: %w", PredictionCollection, err)
	}

	if _, err := r.simplifications.Indexes().CreateMany(ctx, []driver.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create %s indexes: %w", SimplifyCollection, err)
	}

	r.logger.Info("MongoDB indexes ensured")
	return nil
}

// Close disconnects the client.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
