// Package dynamo stores history in two DynamoDB tables keyed by owner, with
// a time-ordered sort key.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// predictionItem: partition key "user", sort key "sk".
type predictionItem struct {
	User       string    `dynamodbav:"user"`
	SortKey    string    `dynamodbav:"sk"`
	ID         string    `dynamodbav:"id"`
	Text       string    `dynamodbav:"text"`
	Score      float64   `dynamodbav:"score"`
	Label      string    `dynamodbav:"label"`
	Simplified *string   `dynamodbav:"simplified,omitempty"`
	Timestamp  time.Time `dynamodbav:"timestamp"`
}

// simplificationItem: partition key "user_id", sort key "sk".
type simplificationItem struct {
	UserID         string    `dynamodbav:"user_id"`
	SortKey        string    `dynamodbav:"sk"`
	ID             string    `dynamodbav:"id"`
	OriginalText   string    `dynamodbav:"original_text"`
	SimplifiedText string    `dynamodbav:"simplified_text"`
	Method         string    `dynamodbav:"method"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
}

func (i predictionItem) toModel() models.PredictionRecord {
	return models.PredictionRecord{
		ID:         i.ID,
		Text:       i.Text,
		Score:      i.Score,
		Label:      models.Label(i.Label),
		Simplified: i.Simplified,
		Timestamp:  i.Timestamp.UTC(),
		User:       i.User,
	}
}

type Repository struct {
	client          API
	predictionTable string
	simplifyTable   string
	logger          *logrus.Logger
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
// A non-empty endpoint targets DynamoDB Local.
func NewClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.DynamoDB.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDB.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
		}
	})

	logger.WithFields(logrus.Fields{
		"region":           cfg.DynamoDB.Region,
		"prediction_table": cfg.DynamoDB.PredictionTableName,
		"simplify_table":   cfg.DynamoDB.SimplifyTableName,
	}).Info("DynamoDB client initialized")

	return client, nil
}

func NewRepository(client API, cfg *config.DynamoDBConfig, logger *logrus.Logger) *Repository {
	return &Repository{
		client:          client,
		predictionTable: cfg.PredictionTableName,
		simplifyTable:   cfg.SimplifyTableName,
		logger:          logger,
	}
}

func (r *Repository) Name() string {
	return "dynamodb"
}

func sortKey(t time.Time, id string) string {
	return t.UTC().Format(sortKeyLayout) + "#" + id
}

func (r *Repository) InsertPrediction(ctx context.Context, record *models.PredictionRecord) error {
	id := uuid.NewString()
	item, err := attributevalue.MarshalMap(predictionItem{
		User:       record.User,
		SortKey:    sortKey(record.Timestamp, id),
		ID:         id,
		Text:       record.Text,
		Score:      record.Score,
		Label:      string(record.Label),
		Simplified: record.Simplified,
		Timestamp:  record.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.predictionTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item failed: %w", err)
	}

	record.ID = id
	return nil
}

func (r *Repository) FindPredictionsByUser(ctx context.Context, user string) ([]models.PredictionRecord, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, r.userQuery(user, nil))

	records := make([]models.PredictionRecord, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		var items []predictionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal failed: %w", err)
		}
		for _, it := range items {
			records = append(records, it.toModel())
		}
	}
	return records, nil
}

func (r *Repository) AllPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.predictionTable),
	})

	records := make([]models.PredictionRecord, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		var items []predictionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal failed: %w", err)
		}
		for _, it := range items {
			records = append(records, it.toModel())
		}
	}
	return records, nil
}

// DeletePredictionsByUser removes the user's items one key at a time.
func (r *Repository) DeletePredictionsByUser(ctx context.Context, user string) (int64, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, r.userQuery(user, aws.String("#u, sk")))

	var deleted int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("query failed: %w", err)
		}
		for _, item := range page.Items {
			if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.predictionTable),
				Key: map[string]types.AttributeValue{
					"user": item["user"],
					"sk":   item["sk"],
				},
			}); err != nil {
				return deleted, fmt.Errorf("delete item failed: %w", err)
			}
			deleted++
		}
	}
	return deleted, nil
}

func (r *Repository) userQuery(user string, projection *string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(r.predictionTable),
		KeyConditionExpression: aws.String("#u = :u"),
		ExpressionAttributeNames: map[string]string{
			"#u": "user",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: user},
		},
		ProjectionExpression: projection,
		ScanIndexForward:     aws.Bool(false),
	}
}

func (r *Repository) InsertSimplification(ctx context.Context, record *models.SimplificationRecord) error {
	id := uuid.NewString()
	item, err := attributevalue.MarshalMap(simplificationItem{
		UserID:         record.UserID,
		SortKey:        sortKey(record.CreatedAt, id),
		ID:             id,
		OriginalText:   record.OriginalText,
		SimplifiedText: record.SimplifiedText,
		Method:         string(record.Method),
		CreatedAt:      record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.simplifyTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item failed: %w", err)
	}

	record.ID = id
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.predictionTable),
	})
	return err
}

// EnsureIndexes checks both tables exist. Tables and their keys are
// provisioned outside the service.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	for _, table := range []string{r.predictionTable, r.simplifyTable} {
		out, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			return fmt.Errorf("describe table %s: %w", table, err)
		}
		status := "UNKNOWN"
		if out.Table != nil {
			status = string(out.Table.TableStatus)
		}
		r.logger.WithFields(logrus.Fields{
			"table":  table,
			"status": status,
		}).Info("DynamoDB table ready")
	}
	return nil
}
