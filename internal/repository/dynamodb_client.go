package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"feedback-bot/internal/domain"
)

const (
	pkReviews      = "REVIEWS"
	skPrefixReview = "REVIEW#"
	skCounter      = "COUNTER#"
)

// dynamodbAPI is the minimal DynamoDB interface required by the clients in
// this package. Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ReviewClient stores reviews in a single DynamoDB partition, sorted by id.
type ReviewClient struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewReviewClient creates a review store backed by tableName.
func NewReviewClient(api dynamodbAPI, tableName string) (*ReviewClient, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &ReviewClient{api: api, tableName: tableName, now: time.Now}, nil
}

// reviewSK zero-pads the id so lexical sort key order equals creation order.
func reviewSK(id int64) string {
	return fmt.Sprintf("%s%020d", skPrefixReview, id)
}

func reviewKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkReviews},
		"SK": &types.AttributeValueMemberS{Value: reviewSK(id)},
	}
}

// Create allocates the next id from the counter item and writes the review.
func (c *ReviewClient) Create(ctx context.Context, respondentID int64, handle, body string) (int64, error) {
	id, err := c.nextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: Create: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: reviewItem(domain.Review{
			ID:               id,
			RespondentID:     respondentID,
			RespondentHandle: handle,
			Body:             body,
		}, c.now().UTC()),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return 0, fmt.Errorf("repository: Create: %w", err)
	}
	return id, nil
}

func (c *ReviewClient) nextID(ctx context.Context) (int64, error) {
	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkReviews},
			"SK": &types.AttributeValueMemberS{Value: skCounter},
		},
		UpdateExpression: aws.String("ADD seq :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	if out == nil {
		return 0, errors.New("allocate id: empty response")
	}
	id, err := int64Attr(out.Attributes, "seq")
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return id, nil
}

// Get returns a single review or domain.ErrNotFound.
func (c *ReviewClient) Get(ctx context.Context, id int64) (domain.Review, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            reviewKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("repository: Get: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Review{}, domain.ErrNotFound
	}
	r, err := itemToReview(out.Item)
	if err != nil {
		return domain.Review{}, fmt.Errorf("repository: Get unmarshal: %w", err)
	}
	return r, nil
}

// ListUnanswered returns unanswered reviews, oldest first.
func (c *ReviewClient) ListUnanswered(ctx context.Context) ([]domain.Review, error) {
	reviews, err := c.queryReviews(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("repository: ListUnanswered: %w", err)
	}
	return reviews, nil
}

// ListAnswered returns answered reviews, oldest first.
func (c *ReviewClient) ListAnswered(ctx context.Context) ([]domain.Review, error) {
	reviews, err := c.queryReviews(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("repository: ListAnswered: %w", err)
	}
	return reviews, nil
}

func (c *ReviewClient) queryReviews(ctx context.Context, answered bool) ([]domain.Review, error) {
	var reviews []domain.Review
	err := c.queryAll(ctx, func(in *dynamodb.QueryInput) {
		in.FilterExpression = aws.String("answered = :answered")
		in.ExpressionAttributeValues[":answered"] = &types.AttributeValueMemberBOOL{Value: answered}
	}, func(item map[string]types.AttributeValue) error {
		r, err := itemToReview(item)
		if err != nil {
			return err
		}
		reviews = append(reviews, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// queryAll pages through every review item in sort key order.
func (c *ReviewClient) queryAll(ctx context.Context, shape func(*dynamodb.QueryInput), visit func(map[string]types.AttributeValue) error) error {
	var startKey map[string]types.AttributeValue
	for {
		in := &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: pkReviews},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixReview},
			},
			ScanIndexForward:  aws.Bool(true),
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: startKey,
		}
		if shape != nil {
			shape(in)
		}
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		if out == nil {
			return nil
		}
		for _, item := range out.Items {
			if err := visit(item); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// MarkAnswered stores the operator reply. Calling it twice overwrites the
// reply; the dispatcher guards against that.
func (c *ReviewClient) MarkAnswered(ctx context.Context, id int64, reply string) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 reviewKey(id),
		UpdateExpression:    aws.String("SET answered = :answered, operatorReply = :reply, answeredAt = :at"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":answered": &types.AttributeValueMemberBOOL{Value: true},
			":reply":    &types.AttributeValueMemberS{Value: reply},
			":at":       &types.AttributeValueMemberS{Value: c.now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("repository: MarkAnswered %d: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("repository: MarkAnswered: %w", err)
	}
	return nil
}

// CountTotalReviews returns the number of stored reviews.
func (c *ReviewClient) CountTotalReviews(ctx context.Context) (int, error) {
	total := 0
	err := c.queryAll(ctx, func(in *dynamodb.QueryInput) {
		in.Select = types.SelectSpecificAttributes
		in.ProjectionExpression = aws.String("SK")
	}, func(map[string]types.AttributeValue) error {
		total++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("repository: CountTotalReviews: %w", err)
	}
	return total, nil
}

// CountDistinctRespondents returns the number of distinct respondent ids.
func (c *ReviewClient) CountDistinctRespondents(ctx context.Context) (int, error) {
	seen := make(map[int64]struct{})
	err := c.queryAll(ctx, func(in *dynamodb.QueryInput) {
		in.Select = types.SelectSpecificAttributes
		in.ProjectionExpression = aws.String("respondentId")
	}, func(item map[string]types.AttributeValue) error {
		id, err := int64Attr(item, "respondentId")
		if err != nil {
			return err
		}
		seen[id] = struct{}{}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("repository: CountDistinctRespondents: %w", err)
	}
	return len(seen), nil
}

func reviewItem(r domain.Review, createdAt time.Time) map[string]types.AttributeValue {
	item := reviewKey(r.ID)
	item["reviewId"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(r.ID, 10)}
	item["respondentId"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(r.RespondentID, 10)}
	item["respondentHandle"] = &types.AttributeValueMemberS{Value: r.RespondentHandle}
	item["body"] = &types.AttributeValueMemberS{Value: r.Body}
	item["answered"] = &types.AttributeValueMemberBOOL{Value: r.Answered}
	item["createdAt"] = &types.AttributeValueMemberS{Value: createdAt.Format(time.RFC3339)}
	if r.Answered {
		item["operatorReply"] = &types.AttributeValueMemberS{Value: r.OperatorReply}
	}
	return item
}

// itemToReview converts a DynamoDB attribute map to a Review.
func itemToReview(item map[string]types.AttributeValue) (domain.Review, error) {
	id, err := int64Attr(item, "reviewId")
	if err != nil {
		return domain.Review{}, err
	}
	respondentID, err := int64Attr(item, "respondentId")
	if err != nil {
		return domain.Review{}, err
	}
	body, err := strAttr(item, "body")
	if err != nil {
		return domain.Review{}, err
	}
	answered, err := boolAttr(item, "answered")
	if err != nil {
		return domain.Review{}, err
	}
	handle, _ := strAttr(item, "respondentHandle") // allow missing
	r := domain.Review{
		ID:               id,
		RespondentID:     respondentID,
		RespondentHandle: handle,
		Body:             body,
		Answered:         answered,
	}
	if answered {
		r.OperatorReply, err = strAttr(item, "operatorReply")
		if err != nil {
			return domain.Review{}, err
		}
	}
	return r, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func boolAttr(item map[string]types.AttributeValue, key string) (bool, error) {
	v, ok := item[key]
	if !ok {
		return false, fmt.Errorf("repository: missing attribute %q", key)
	}
	b, ok := v.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, fmt.Errorf("repository: attribute %q is not a boolean", key)
	}
	return b.Value, nil
}
