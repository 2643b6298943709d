package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"feedback-bot/internal/domain"
)

type sentNotice struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentNotice
	err  error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, _ ...[]domain.Button) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotice{chatID: chatID, text: text})
	return nil
}

var testOperators = domain.NewOperatorSet(42, 43)

func TestRunWithNotices_Success(t *testing.T) {
	s := &fakeSender{}
	err := RunWithNotices(context.Background(), s, testOperators, nil, func(context.Context) error {
		// started goes out before any setup call
		require.Equal(t, []sentNotice{{42, NoticeStarted}}, s.sent)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []sentNotice{{42, NoticeStarted}, {42, NoticeStopped}}, s.sent)
}

func TestRunWithNotices_ErrorStillSendsStopped(t *testing.T) {
	s := &fakeSender{}
	err := RunWithNotices(context.Background(), s, testOperators, nil, func(context.Context) error {
		return errors.New("deleteWebhook refused")
	})
	require.ErrorContains(t, err, "deleteWebhook refused")
	require.Equal(t, []sentNotice{{42, NoticeStarted}, {42, NoticeStopped}}, s.sent)
}

func TestRunWithNotices_CancelIsCleanStop(t *testing.T) {
	s := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	err := RunWithNotices(ctx, s, testOperators, nil, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	require.NoError(t, err)
	require.Len(t, s.sent, 2)
	require.Equal(t, NoticeStopped, s.sent[1].text)
}

func TestRunWithNotices_PanicSendsStoppedAndRepanics(t *testing.T) {
	s := &fakeSender{}
	require.PanicsWithValue(t, "boom", func() {
		_ = RunWithNotices(context.Background(), s, testOperators, nil, func(context.Context) error {
			panic("boom")
		})
	})
	require.Equal(t, []sentNotice{{42, NoticeStarted}, {42, NoticeStopped}}, s.sent)
}

func TestRunWithNotices_FailingSenderDoesNotBlockRun(t *testing.T) {
	s := &fakeSender{err: errors.New("forbidden")}
	ran := false
	err := RunWithNotices(context.Background(), s, testOperators, nil, func(context.Context) error {
		ran = true
		return errors.New("poll failed")
	})
	require.True(t, ran)
	require.ErrorContains(t, err, "poll failed")
}

func TestRunWithNotices_NoOperators(t *testing.T) {
	s := &fakeSender{}
	err := RunWithNotices(context.Background(), s, domain.NewOperatorSet(), nil, func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Empty(t, s.sent)
}
