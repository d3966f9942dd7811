package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prix-carburants/backend-go/internal/config"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

const tableName = "fuel-price-history-cache"

// DynamoHistoryCache handles caching daily price records in DynamoDB
type DynamoHistoryCache struct {
	client DynamoDBClient
	config *config.CacheConfig
}

func NewDynamoHistoryCache(client DynamoDBClient, cacheConfig *config.CacheConfig) *DynamoHistoryCache {
	if cacheConfig == nil {
		cacheConfig = config.GetCacheConfig()
	}
	return &DynamoHistoryCache{
		client: client,
		config: cacheConfig,
	}
}

// GetRecord retrieves a cached price record for a station and date
func (c *DynamoHistoryCache) GetRecord(ctx context.Context, stationID string, date time.Time) (*models.PriceRecord, error) {
	dateStr := date.Format("2006-01-02")

	input := &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			"stationId": &types.AttributeValueMemberS{Value: stationID},
			"date":      &types.AttributeValueMemberS{Value: dateStr},
		},
	}

	result, err := c.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("getting price record from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var record models.PriceRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling price record: %w", err)
	}

	if !c.isValid(record) {
		log.Debug().
			Str("station_id", stationID).
			Str("date", dateStr).
			Msg("Cache expired")
		return nil, nil
	}

	return &record, nil
}

// SaveRecord saves a price record to the cache
func (c *DynamoHistoryCache) SaveRecord(ctx context.Context, record models.PriceRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid price record: %w", err)
	}

	now := time.Now().Unix()
	record.LastUpdated = now
	record.TTL = now + int64(c.config.GetHistoryDynamoTTL().Seconds())

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling price record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	}

	if _, err := c.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("putting price record in DynamoDB: %w", err)
	}

	log.Debug().
		Str("station_id", record.StationID).
		Str("date", record.Date).
		Msg("Saved price record to cache")

	return nil
}

// SaveRecordsBatch saves multiple price records to the cache
func (c *DynamoHistoryCache) SaveRecordsBatch(ctx context.Context, records []models.PriceRecord) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return fmt.Errorf("invalid price record: %w", err)
		}
	}

	// Process in batches using configured batch size
	batchSize := c.config.BatchSize
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := records[i:end]
		var writeRequests []types.WriteRequest

		for _, record := range batch {
			now := time.Now().Unix()
			record.LastUpdated = now
			record.TTL = now + int64(c.config.GetHistoryDynamoTTL().Seconds())

			item, err := attributevalue.MarshalMap(record)
			if err != nil {
				return fmt.Errorf("marshaling price record: %w", err)
			}

			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{
					Item: item,
				},
			})
		}

		// Retry with exponential backoff up to the configured max
		var lastErr error
		for retry := 0; retry < c.config.MaxBatchRetries; retry++ {
			input := &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					tableName: writeRequests,
				},
			}

			if _, err := c.client.BatchWriteItem(ctx, input); err != nil {
				lastErr = err
				time.Sleep(time.Duration(1<<retry) * 100 * time.Millisecond)
				continue
			}
			lastErr = nil
			break
		}
		if lastErr != nil {
			return fmt.Errorf("batch writing price records after %d retries: %w",
				c.config.MaxBatchRetries, lastErr)
		}
	}

	return nil
}

func (c *DynamoHistoryCache) isValid(record models.PriceRecord) bool {
	now := time.Now().Unix()
	return now < record.TTL
}
