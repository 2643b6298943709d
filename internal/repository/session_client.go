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
	skSession   = "META#"
	ttlDuration = 30 * 24 * time.Hour // abandoned surveys expire after 30 days
)

// SessionClient keeps conversation sessions in DynamoDB so that webhook
// invocations served by different Lambda containers see the same stage.
// It satisfies conversation.Store.
type SessionClient struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewSessionClient creates a session store backed by tableName.
func NewSessionClient(api dynamodbAPI, tableName string) (*SessionClient, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &SessionClient{api: api, tableName: tableName, now: time.Now}, nil
}

// userPK returns the partition key for a user's session.
func userPK(userID int64) string {
	return "USER#" + strconv.FormatInt(userID, 10)
}

func sessionKey(userID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: skSession},
	}
}

// Load returns the stored session, or an idle one when none exists or it has
// passed its TTL but not yet been swept by DynamoDB.
func (c *SessionClient) Load(ctx context.Context, userID int64) (domain.Session, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            sessionKey(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: Load session: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.IdleSession(), nil
	}
	if ttl, err := int64Attr(out.Item, "ttl"); err == nil && ttl < c.now().Unix() {
		return domain.IdleSession(), nil
	}
	s, err := itemToSession(out.Item)
	if err != nil {
		return domain.Session{}, fmt.Errorf("repository: Load session decode: %w", err)
	}
	return s, nil
}

// Save writes the session; an idle session deletes the record.
func (c *SessionClient) Save(ctx context.Context, userID int64, s domain.Session) error {
	if s.Stage == domain.StageIdle {
		return c.Reset(ctx, userID)
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      sessionItem(userID, s, c.now().Add(ttlDuration).Unix()),
	})
	if err != nil {
		return fmt.Errorf("repository: Save session: %w", err)
	}
	return nil
}

func (c *SessionClient) Reset(ctx context.Context, userID int64) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       sessionKey(userID),
	})
	if err != nil {
		return fmt.Errorf("repository: Reset session: %w", err)
	}
	return nil
}

func sessionItem(userID int64, s domain.Session, ttl int64) map[string]types.AttributeValue {
	item := sessionKey(userID)
	item["stage"] = &types.AttributeValueMemberS{Value: string(s.Stage)}
	item["source"] = &types.AttributeValueMemberS{Value: s.Scratch.Source}
	item["review"] = &types.AttributeValueMemberS{Value: s.Scratch.Review}
	item["subject"] = &types.AttributeValueMemberS{Value: s.Scratch.Subject}
	item["reviewId"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.ReviewID, 10)}
	item["respondentId"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.RespondentID, 10)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)}
	return item
}

func itemToSession(item map[string]types.AttributeValue) (domain.Session, error) {
	stage, err := strAttr(item, "stage")
	if err != nil {
		return domain.Session{}, err
	}
	if !domain.Stage(stage).Valid() {
		return domain.Session{}, fmt.Errorf("repository: unknown stage %q", stage)
	}
	s := domain.Session{Stage: domain.Stage(stage)}
	s.Scratch.Source, _ = strAttr(item, "source")
	s.Scratch.Review, _ = strAttr(item, "review")
	s.Scratch.Subject, _ = strAttr(item, "subject")
	s.ReviewID, _ = int64Attr(item, "reviewId")
	s.RespondentID, _ = int64Attr(item, "respondentId")
	return s, nil
}
