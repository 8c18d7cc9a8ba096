package dynamo

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuma-lab/readability-api/internal/config"
	"github.com/okuma-lab/readability-api/internal/models"
)

// fakeDynamo keeps items per table and serves pages of pageSize items.
type fakeDynamo struct {
	mu       sync.Mutex
	tables   map[string][]map[string]types.AttributeValue
	pageSize int
	queries  int
	failPut  error
}

func newFakeDynamo(pageSize int) *fakeDynamo {
	return &fakeDynamo{
		tables: map[string][]map[string]types.AttributeValue{
			"prediction_history": nil,
			"simplify_history":   nil,
		},
		pageSize: pageSize,
	}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) page(items []map[string]types.AttributeValue, start map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	offset := 0
	if start != nil {
		for i, it := range items {
			if str(it["sk"]) == str(start["sk"]) {
				offset = i + 1
				break
			}
		}
	}
	end := offset + f.pageSize
	if end >= len(items) {
		return items[offset:], nil
	}
	last := items[end-1]
	return items[offset:end], map[string]types.AttributeValue{"sk": last["sk"]}
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	user := str(in.ExpressionAttributeValues[":u"])
	var matched []map[string]types.AttributeValue
	for _, it := range f.tables[aws.ToString(in.TableName)] {
		if str(it["user"]) == user {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if aws.ToBool(in.ScanIndexForward) {
			return str(matched[i]["sk"]) < str(matched[j]["sk"])
		}
		return str(matched[i]["sk"]) > str(matched[j]["sk"])
	})

	items, next := f.page(matched, in.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: items, LastEvaluatedKey: next}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, next := f.page(f.tables[aws.ToString(in.TableName)], in.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: next}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return nil, f.failPut
	}

	table := aws.ToString(in.TableName)
	f.tables[table] = append(f.tables[table], in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := aws.ToString(in.TableName)
	kept := f.tables[table][:0]
	for _, it := range f.tables[table] {
		if str(it["user"]) == str(in.Key["user"]) && str(it["sk"]) == str(in.Key["sk"]) {
			continue
		}
		kept = append(kept, it)
	}
	f.tables[table] = kept
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if _, ok := f.tables[aws.ToString(in.TableName)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: types.TableStatusActive},
	}, nil
}

func newTestRepository(fake *fakeDynamo) *Repository {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRepository(fake, &config.DynamoDBConfig{
		PredictionTableName: "prediction_history",
		SimplifyTableName:   "simplify_history",
	}, logger)
}

func seed(t *testing.T, repo *Repository, user string, n int) {
	t.Helper()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rec := &models.PredictionRecord{
			Text:      "metin",
			Score:     0.6,
			Label:     models.LabelDifficult,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			User:      user,
		}
		require.NoError(t, repo.InsertPrediction(context.Background(), rec))
		require.NotEmpty(t, rec.ID)
	}
}

func TestRepository_FindPredictionsByUserPaginates(t *testing.T) {
	fake := newFakeDynamo(2)
	repo := newTestRepository(fake)
	seed(t, repo, "user", 5)
	seed(t, repo, "admin", 1)

	records, err := repo.FindPredictionsByUser(context.Background(), "user")
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, 3, fake.queries)

	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Timestamp.After(records[i].Timestamp))
	}
	assert.Equal(t, "user", records[0].User)
	assert.Equal(t, models.LabelDifficult, records[0].Label)
	assert.Equal(t, time.UTC, records[0].Timestamp.Location())
}

func TestRepository_DeletePredictionsByUser(t *testing.T) {
	fake := newFakeDynamo(2)
	repo := newTestRepository(fake)
	seed(t, repo, "user", 3)
	seed(t, repo, "admin", 2)

	deleted, err := repo.DeletePredictionsByUser(context.Background(), "user")
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	all, err := repo.AllPredictions(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.Equal(t, "admin", r.User)
	}
}

func TestRepository_SimplifiedRoundTrip(t *testing.T) {
	repo := newTestRepository(newFakeDynamo(10))
	simplified := "Kolay metin"

	rec := &models.PredictionRecord{
		Text: "Zor metin", Score: 0.8, Label: models.LabelDifficult,
		Simplified: &simplified, Timestamp: time.Now().UTC(), User: "user",
	}
	require.NoError(t, repo.InsertPrediction(context.Background(), rec))

	records, err := repo.FindPredictionsByUser(context.Background(), "user")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Simplified)
	assert.Equal(t, simplified, *records[0].Simplified)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestRepository_InsertSimplification(t *testing.T) {
	fake := newFakeDynamo(10)
	repo := newTestRepository(fake)

	rec := &models.SimplificationRecord{
		UserID: "user", OriginalText: "a", SimplifiedText: "b",
		Method: models.MethodOpenAI, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.InsertSimplification(context.Background(), rec))
	assert.NotEmpty(t, rec.ID)

	require.Len(t, fake.tables["simplify_history"], 1)
	item := fake.tables["simplify_history"][0]
	assert.Equal(t, "user", str(item["user_id"]))
	assert.Equal(t, "openai", str(item["method"]))
}

func TestRepository_PutFailure(t *testing.T) {
	fake := newFakeDynamo(10)
	fake.failPut = errors.New("throttled")
	repo := newTestRepository(fake)

	err := repo.InsertPrediction(context.Background(), &models.PredictionRecord{User: "user"})
	require.Error(t, err)
	assert.ErrorIs(t, err, fake.failPut)
}

func TestRepository_PingAndEnsureIndexes(t *testing.T) {
	fake := newFakeDynamo(10)
	repo := newTestRepository(fake)

	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.EnsureIndexes(context.Background()))

	delete(fake.tables, "simplify_history")
	assert.Error(t, repo.EnsureIndexes(context.Background()))
}
