package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/Dosada05/tournament-fixtures/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoFixtureRepository keeps one item per schedule, keyed by PK = schedule
// id. Version is checked with a condition expression on every Replace.
type DynamoFixtureRepository struct {
	Client    *dynamodb.Client
	TableName string
}

func NewDynamoFixtureRepository(client *dynamodb.Client, tableName string) FixtureRepository {
	return &DynamoFixtureRepository{Client: client, TableName: tableName}
}

func (r *DynamoFixtureRepository) Get(ctx context.Context, id string) (*models.Schedule, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.TableName,
		Key:            fixtureKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem for fixture %s failed: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrFixtureNotFound
	}
	return decodeFixtureItem(out.Item)
}

func (r *DynamoFixtureRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Schedule, error) {
	var (
		lastEvaluatedKey map[string]types.AttributeValue
		schedules        = make([]*models.Schedule, 0)
	)

	for {
		out, err := r.Client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &r.TableName,
			ExclusiveStartKey: lastEvaluatedKey,
			FilterExpression:  aws.String("TournamentID = :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberS{Value: tournamentID},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb Scan for tournament %s failed: %w", tournamentID, err)
		}

		for _, item := range out.Items {
			s, decodeErr := decodeFixtureItem(item)
			if decodeErr != nil {
				return nil, decodeErr
			}
			schedules = append(schedules, s)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = out.LastEvaluatedKey
	}

	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].Round < schedules[j].Round
	})
	return schedules, nil
}

func (r *DynamoFixtureRepository) Create(ctx context.Context, schedule *models.Schedule) (int64, error) {
	item, err := encodeFixtureItem(schedule, 1)
	if err != nil {
		return 0, err
	}

	_, err = r.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			return 0, ErrFixtureAlreadyExists
		}
		return 0, fmt.Errorf("dynamodb PutItem for fixture %s failed: %w", schedule.ID, err)
	}
	return 1, nil
}

func (r *DynamoFixtureRepository) Replace(ctx context.Context, schedule *models.Schedule, expectedVersion int64) (int64, error) {
	next := expectedVersion + 1
	item, err := encodeFixtureItem(schedule, next)
	if err != nil {
		return 0, err
	}

	_, err = r.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.TableName,
		Item:                item,
		ConditionExpression: aws.String("#version = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#version": "Version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			if cce.Item == nil {
				return 0, ErrFixtureNotFound
			}
			return 0, ErrFixtureVersionConflict
		}
		return 0, fmt.Errorf("dynamodb PutItem for fixture %s failed: %w", schedule.ID, err)
	}
	return next, nil
}

func (r *DynamoFixtureRepository) DeleteByTournament(ctx context.Context, tournamentID string) (int, error) {
	schedules, err := r.ListByTournament(ctx, tournamentID)
	if err != nil {
		return 0, err
	}
	for i, s := range schedules {
		_, err := r.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: &r.TableName,
			Key:       fixtureKey(s.ID),
		})
		if err != nil {
			return i, fmt.Errorf("dynamodb DeleteItem for fixture %s failed: %w", s.ID, err)
		}
	}
	return len(schedules), nil
}

func fixtureKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: id},
	}
}

func encodeFixtureItem(schedule *models.Schedule, version int64) (map[string]types.AttributeValue, error) {
	rec := schedule.Record()
	rec.Version = version
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fixture %s: %w", schedule.ID, err)
	}
	return item, nil
}

func decodeFixtureItem(item map[string]types.AttributeValue) (*models.Schedule, error) {
	var rec models.ScheduleRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixture item: %w", err)
	}
	return rec.Schedule()
}
