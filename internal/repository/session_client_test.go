package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"feedback-bot/internal/domain"
)

func mustNewSessionClient(t *testing.T, db *fakeDynamo, now time.Time) *SessionClient {
	t.Helper()
	c, err := NewSessionClient(db, "sessions-table")
	require.NoError(t, err)
	c.now = func() time.Time { return now }
	return c
}

func TestSession_SaveAndLoad(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDynamo{}
	c := mustNewSessionClient(t, db, now)

	s := domain.Session{
		Stage:   domain.StageAwaitingSubject,
		Scratch: domain.Answers{Source: "src", Review: "Loved it"},
	}
	require.NoError(t, c.Save(context.Background(), 1001, s))
	item := db.lastPutInput.Item
	require.Equal(t, "USER#1001", item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, strconv.FormatInt(now.Add(ttlDuration).Unix(), 10), item["ttl"].(*types.AttributeValueMemberN).Value)

	db.getOut = &dynamodb.GetItemOutput{Item: item}
	loaded, err := c.Load(context.Background(), 1001)
	require.NoError(t, err)
	require.Equal(t, s, loaded)
}

func TestSession_OperatorBinding(t *testing.T) {
	now := time.Now()
	db := &fakeDynamo{}
	c := mustNewSessionClient(t, db, now)

	s := domain.Session{Stage: domain.StageAwaitingOperatorReply, ReviewID: 7, RespondentID: 1001}
	require.NoError(t, c.Save(context.Background(), 42, s))

	db.getOut = &dynamodb.GetItemOutput{Item: db.lastPutInput.Item}
	loaded, err := c.Load(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, s, loaded)
}

func TestSession_LoadMissingIsIdle(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewSessionClient(t, db, time.Now())
	s, err := c.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domain.IdleSession(), s)
}

func TestSession_LoadExpiredIsIdle(t *testing.T) {
	now := time.Now()
	item := sessionItem(1, domain.Session{Stage: domain.StageAwaitingFreeReview}, now.Add(-time.Minute).Unix())
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	c := mustNewSessionClient(t, db, now)
	s, err := c.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domain.StageIdle, s.Stage)
}

func TestSession_LoadUnknownStage(t *testing.T) {
	now := time.Now()
	item := sessionItem(1, domain.Session{Stage: "waiting_for_review"}, now.Add(time.Hour).Unix())
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	c := mustNewSessionClient(t, db, now)
	_, err := c.Load(context.Background(), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown stage")
}

func TestSession_SaveIdleDeletes(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewSessionClient(t, db, time.Now())
	require.NoError(t, c.Save(context.Background(), 5, domain.IdleSession()))
	require.Nil(t, db.lastPutInput)
	require.NotNil(t, db.lastDeleteIn)
	require.Equal(t, "USER#5", db.lastDeleteIn.Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestSession_Errors(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom"), putErr: errors.New("boom"), deleteErr: errors.New("boom")}
	c := mustNewSessionClient(t, db, time.Now())

	_, err := c.Load(context.Background(), 1)
	require.ErrorContains(t, err, "Load session")

	err = c.Save(context.Background(), 1, domain.Session{Stage: domain.StageAwaitingFreeReview})
	require.ErrorContains(t, err, "Save session")

	err = c.Reset(context.Background(), 1)
	require.ErrorContains(t, err, "Reset session")
}

func TestNewSessionClient_Validation(t *testing.T) {
	_, err := NewSessionClient(nil, "t")
	require.Error(t, err)
	_, err = NewSessionClient(&fakeDynamo{}, "")
	require.Error(t, err)
}
