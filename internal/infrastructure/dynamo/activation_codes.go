package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-license-api/internal/domain"
)

// API is the subset of *dynamodb.Client used by ActivationCodeRepo.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ActivationCodeRepo provides typed DynamoDB operations for the activation_codes table.
// PK: code. Single-use semantics rely on DynamoDB condition expressions.
type ActivationCodeRepo struct {
	client    API
	tableName string
}

func NewActivationCodeRepo(client API, tableName string) *ActivationCodeRepo {
	return &ActivationCodeRepo{client: client, tableName: tableName}
}

// Insert writes c only if no item with the same code exists.
func (r *ActivationCodeRepo) Insert(ctx context.Context, c *domain.ActivationCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal activation code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldCode},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("activation code exists: %w", domain.ErrConflict)
	}
	return err
}

func (r *ActivationCodeRepo) Get(ctx context.Context, code string) (*domain.ActivationCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldCode, code),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("activation code not found: %w", domain.ErrNotFound)
	}
	var c domain.ActivationCode
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsed binds deviceID to an unused code in a single conditional update.
// A missing or already used code fails the condition and yields ErrNotFound.
func (r *ActivationCodeRepo) MarkUsed(ctx context.Context, code, deviceID string, usedAt time.Time) (*domain.ActivationCode, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldState:    domain.CodeUsed,
		fieldDeviceID: deviceID,
		fieldUsedAt:   usedAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	ue.Names["#pk"] = fieldCode
	ue.Names["#st"] = fieldState
	unused, err := attributevalue.Marshal(domain.CodeUnused)
	if err != nil {
		return nil, err
	}
	ue.Values[":unused"] = unused

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldCode, code),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk) AND #st = :unused"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("activation code invalid or used: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var c domain.ActivationCode
	if err := attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return err != nil && errors.As(err, &ccf)
}
