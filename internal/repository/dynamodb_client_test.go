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

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	updateOut    *dynamodb.UpdateItemOutput
	updateErr    error
	deleteErr    error
	queryOuts    []*dynamodb.QueryOutput
	queryErr     error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	updateInputs []*dynamodb.UpdateItemInput
	lastDeleteIn *dynamodb.DeleteItemInput
	queryInputs  []*dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInputs = append(f.updateInputs, in)
	if f.updateOut == nil {
		return &dynamodb.UpdateItemOutput{}, f.updateErr
	}
	return f.updateOut, f.updateErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDeleteIn = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	idx := len(f.queryInputs) - 1
	if idx >= len(f.queryOuts) {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryOuts[idx], nil
}

func makeReviewItem(r domain.Review) map[string]types.AttributeValue {
	return reviewItem(r, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
}

func seqOutput(n int64) *dynamodb.UpdateItemOutput {
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"seq": &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)},
	}}
}

func mustNewReviewClient(t *testing.T, db *fakeDynamo) *ReviewClient {
	t.Helper()
	c, err := NewReviewClient(db, "reviews-table")
	require.NoError(t, err)
	return c
}

func TestCreate_HappyPath(t *testing.T) {
	db := &fakeDynamo{updateOut: seqOutput(12)}
	c := mustNewReviewClient(t, db)

	id, err := c.Create(context.Background(), 1001, "visitor", "body")
	require.NoError(t, err)
	require.Equal(t, int64(12), id)

	require.Len(t, db.updateInputs, 1)
	require.Equal(t, "ADD seq :one", *db.updateInputs[0].UpdateExpression)
	require.Equal(t, skCounter, db.updateInputs[0].Key["SK"].(*types.AttributeValueMemberS).Value)

	item := db.lastPutInput.Item
	require.Equal(t, reviewSK(12), item["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "1001", item["respondentId"].(*types.AttributeValueMemberN).Value)
	require.False(t, item["answered"].(*types.AttributeValueMemberBOOL).Value)
	require.NotContains(t, item, "operatorReply")
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *db.lastPutInput.ConditionExpression)
}

func TestCreate_CounterError(t *testing.T) {
	db := &fakeDynamo{updateErr: errors.New("ProvisionedThroughputExceededException")}
	c := mustNewReviewClient(t, db)
	_, err := c.Create(context.Background(), 1, "", "body")
	require.Error(t, err)
	require.Contains(t, err.Error(), "allocate id")
	require.Nil(t, db.lastPutInput)
}

func TestCreate_MalformedCounter(t *testing.T) {
	db := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{}}
	c := mustNewReviewClient(t, db)
	_, err := c.Create(context.Background(), 1, "", "body")
	require.Error(t, err)
	require.Contains(t, err.Error(), "seq")
}

func TestCreate_PutError(t *testing.T) {
	db := &fakeDynamo{updateOut: seqOutput(1), putErr: errors.New("internal server error")}
	c := mustNewReviewClient(t, db)
	_, err := c.Create(context.Background(), 1, "", "body")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Create")
}

func TestGet_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makeReviewItem(domain.Review{
		ID: 7, RespondentID: 1001, Body: "b", Answered: true, OperatorReply: "Thanks!",
	})}}
	c := mustNewReviewClient(t, db)
	r, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), r.ID)
	require.True(t, r.Answered)
	require.Equal(t, "Thanks!", r.OperatorReply)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestGet_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewReviewClient(t, db)
	_, err := c.Get(context.Background(), 7)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_MalformedItem(t *testing.T) {
	item := makeReviewItem(domain.Review{ID: 7, RespondentID: 1})
	delete(item, "body")
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	c := mustNewReviewClient(t, db)
	_, err := c.Get(context.Background(), 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "body")
}

func TestListUnanswered_PaginatesInOrder(t *testing.T) {
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{makeReviewItem(domain.Review{ID: 1, RespondentID: 10, Body: "a"})},
			LastEvaluatedKey: reviewKey(1),
		},
		{
			Items: []map[string]types.AttributeValue{makeReviewItem(domain.Review{ID: 2, RespondentID: 11, Body: "b"})},
		},
	}}
	c := mustNewReviewClient(t, db)
	reviews, err := c.ListUnanswered(context.Background())
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.Equal(t, int64(1), reviews[0].ID)
	require.Equal(t, int64(2), reviews[1].ID)

	require.Len(t, db.queryInputs, 2)
	first := db.queryInputs[0]
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *first.KeyConditionExpression)
	require.True(t, *first.ScanIndexForward)
	require.Equal(t, "answered = :answered", *first.FilterExpression)
	require.False(t, first.ExpressionAttributeValues[":answered"].(*types.AttributeValueMemberBOOL).Value)
	require.Nil(t, first.ExclusiveStartKey)
	require.Equal(t, reviewKey(1), db.queryInputs[1].ExclusiveStartKey)
}

func TestListAnswered_FiltersAnswered(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewReviewClient(t, db)
	reviews, err := c.ListAnswered(context.Background())
	require.NoError(t, err)
	require.Empty(t, reviews)
	require.True(t, db.queryInputs[0].ExpressionAttributeValues[":answered"].(*types.AttributeValueMemberBOOL).Value)
}

func TestListUnanswered_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")}
	c := mustNewReviewClient(t, db)
	_, err := c.ListUnanswered(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ListUnanswered")
}

func TestMarkAnswered_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewReviewClient(t, db)
	require.NoError(t, c.MarkAnswered(context.Background(), 7, "Thanks!"))

	in := db.updateInputs[0]
	require.Equal(t, reviewSK(7), in.Key["SK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "attribute_exists(PK)", *in.ConditionExpression)
	require.Equal(t, "Thanks!", in.ExpressionAttributeValues[":reply"].(*types.AttributeValueMemberS).Value)
}

func TestMarkAnswered_MissingReview(t *testing.T) {
	db := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	c := mustNewReviewClient(t, db)
	err := c.MarkAnswered(context.Background(), 7, "Thanks!")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCounts(t *testing.T) {
	page := func() []*dynamodb.QueryOutput {
		return []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{
			makeReviewItem(domain.Review{ID: 1, RespondentID: 10, Body: "a"}),
			makeReviewItem(domain.Review{ID: 2, RespondentID: 11, Body: "b"}),
			makeReviewItem(domain.Review{ID: 3, RespondentID: 10, Body: "c"}),
		}}}
	}

	db := &fakeDynamo{queryOuts: page()}
	c := mustNewReviewClient(t, db)
	total, err := c.CountTotalReviews(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, total)

	db = &fakeDynamo{queryOuts: page()}
	c = mustNewReviewClient(t, db)
	distinct, err := c.CountDistinctRespondents(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, distinct)
	require.Equal(t, "respondentId", *db.queryInputs[0].ProjectionExpression)
}

func TestReviewSK_SortsNumerically(t *testing.T) {
	require.Less(t, reviewSK(9), reviewSK(10))
	require.Less(t, reviewSK(99), reviewSK(100))
}

func TestNewReviewClient_Validation(t *testing.T) {
	_, err := NewReviewClient(nil, "t")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")

	_, err = NewReviewClient(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}
