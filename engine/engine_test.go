package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

func photoMessage(id, from int64, handle, fileRef string) *transport.Message {
	return &transport.Message{
		ID:         id,
		ChatID:     from,
		Private:    true,
		FromID:     from,
		FromHandle: handle,
		Photo:      &transport.MediaFile{FileRef: fileRef},
	}
}

func videoMessage(id, from int64, fileRef string, sizeBytes int64) *transport.Message {
	return &transport.Message{
		ID:      id,
		ChatID:  from,
		Private: true,
		FromID:  from,
		Video:   &transport.MediaFile{FileRef: fileRef, SizeBytes: sizeBytes},
	}
}

func reviewText(from int64, handle, text string) *transport.Message {
	return &transport.Message{
		ID:         9000,
		ChatID:     testReviewChatID,
		FromID:     from,
		FromHandle: handle,
		Text:       text,
	}
}

func buttonPress(from int64, handle, token string) *transport.Callback {
	return &transport.Callback{
		ID:         "cbq1",
		FromID:     from,
		FromHandle: handle,
		Token:      token,
		Message:    transport.MessageRef{ChatID: testReviewChatID, MessageID: 1},
	}
}

func TestSubmissionApproveFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "sub", "p1")))

	// review copy mirrored with four action buttons
	media := mock.MediaTo(testReviewChatID)
	require.Len(t, media, 1)
	assert.Equal("photo", media[0].Kind)
	assert.Equal("p1", media[0].FileRef)
	assert.Len(media[0].Buttons, 4)
	// submitter acknowledged
	assert.NotEmpty(mock.TextsTo(100))

	st, err := eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(1, st.TotalSubmitted)
	assert.Equal(1, st.PendingCount)

	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusPending, it.Status)

	// moderator 7 approves via the direct button
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", approveToken(11))))

	it, err = eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusApproved, it.Status)

	st, err = eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(1, st.TotalApproved)
	assert.Equal(0, st.PendingCount)

	// published anonymously to the public destination
	published := mock.MediaTo(testPublishChatID)
	require.Len(t, published, 1)
	assert.Equal("p1", published[0].FileRef)
	assert.Equal(int64(17), published[0].Dest.ThreadID)

	// review copy annotated, buttons dropped
	require.NotEmpty(t, mock.Edits)
	assert.Nil(mock.Edits[0].Buttons)
	found := false
	for _, ed := range mock.Edits {
		if ed.IsCaption {
			assert.Contains(ed.Caption, "approved by @mod7")
			found = true
		}
	}
	assert.True(found)

	// submitter notified
	texts := mock.TextsTo(100)
	assert.Contains(texts[len(texts)-1], "approved")
}

func TestSubmissionUnsupportedKind(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	msg := &transport.Message{
		ID:      12,
		ChatID:  100,
		Private: true,
		FromID:  100,
		Sticker: &transport.MediaFile{FileRef: "s1"},
	}
	assert.NoError(eng.ProcessPrivateMessage(ctx, msg))

	texts := mock.TextsTo(100)
	require.Len(t, texts, 1)
	assert.Contains(texts[0], "not supported")

	st, err := eng.Queue.Stats(ctx)
	assert.NoError(err)
	assert.Equal(0, st.TotalSubmitted)
}

func TestVideoSizeLimitLiveEdit(t *testing.T) {
	// admin raises the video limit to 250 through the settings dialog, the
	// validator picks it up immediately
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(1, "boss", setFieldToken("maxVideoSizeMB"))))
	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(1, "boss", "250")))
	assert.Equal(250, eng.Settings.Get().MaxVideoSizeMB)

	// 200MB accepted
	assert.NoError(eng.ProcessPrivateMessage(ctx, videoMessage(21, 100, "v200", 200*1024*1024)))
	_, err := eng.Queue.Get(ctx, 21)
	assert.NoError(err)

	// 300MB rejected, naming the bound
	assert.NoError(eng.ProcessPrivateMessage(ctx, videoMessage(22, 101, "v300", 300*1024*1024)))
	_, err = eng.Queue.Get(ctx, 22)
	assert.ErrorIs(err, modqueue.ErrNotFound)
	texts := mock.TextsTo(101)
	require.Len(t, texts, 1)
	assert.Contains(texts[0], "250MB")

	// unknown size cannot be checked up front, accepted
	assert.NoError(eng.ProcessPrivateMessage(ctx, videoMessage(23, 102, "v?", 0)))
	_, err = eng.Queue.Get(ctx, 23)
	assert.NoError(err)
}

func TestRejectWithCommentFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "sub", "p1")))

	// moderator 7 opens the reject-with-comment dialog
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", rejectCommentToken(11))))

	// moderator 9's text in the shared room must not be consumed
	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(9, "mod9", "spam")))
	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusPending, it.Status)

	// moderator 7's own text completes the rejection
	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(7, "mod7", "no credit given")))
	it, err = eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusRejected, it.Status)

	// nothing was published
	assert.Empty(mock.MediaTo(testPublishChatID))

	// submitter got the comment
	texts := mock.TextsTo(100)
	last := texts[len(texts)-1]
	assert.Contains(last, "rejected")
	assert.Contains(last, "no credit given")

	// dialog gone
	d, err := eng.Dialogs.Active(ctx, 7)
	assert.NoError(err)
	assert.Nil(d)
}

func TestDecisionForbidden(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(55, "rando", approveToken(11))))

	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusPending, it.Status)

	require.NotEmpty(t, mock.Answers)
	ans := mock.Answers[len(mock.Answers)-1]
	assert.Contains(ans.Text, "not a moderator")
	assert.True(ans.Alert)
}

func TestDoubleDecisionIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", approveToken(11))))
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(9, "mod9", rejectToken(11))))

	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusApproved, it.Status)

	// published exactly once
	assert.Len(mock.MediaTo(testPublishChatID), 1)

	ans := mock.Answers[len(mock.Answers)-1]
	assert.Contains(ans.Text, "already handled")

	st, err := eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(1, st.TotalApproved)
	assert.Equal(0, st.TotalRejected)
}

func TestPublishFailureKeepsApproval(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))

	// the status flip commits before the publish side effect and is not
	// rolled back when publishing fails
	mock.FailSends = true
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", approveToken(11))))
	mock.FailSends = false

	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusApproved, it.Status)
	assert.Empty(mock.MediaTo(testPublishChatID))

	ans := mock.Answers[len(mock.Answers)-1]
	assert.Contains(ans.Text, "publishing failed")
}

func TestDuplicateSubmissionAcknowledgedOnce(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(12, 100, "", "p1")))

	// only one review copy, second sender gets a soft ack
	assert.Len(mock.MediaTo(testReviewChatID), 1)
	st, err := eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(1, st.TotalSubmitted)
	texts := mock.TextsTo(100)
	assert.Contains(texts[len(texts)-1], "already received")
}

func TestFailedMirrorLeavesRetryOpen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	// the review mirror fails, the submitter is told to try again later
	mock.FailSends = true
	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	mock.FailSends = false

	st, err := eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(0, st.TotalSubmitted)

	// the retry of the same content must not be refused as a duplicate
	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(12, 100, "", "p1")))

	assert.Len(mock.MediaTo(testReviewChatID), 1)
	st, err = eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(1, st.TotalSubmitted)
	texts := mock.TextsTo(100)
	assert.Contains(texts[len(texts)-1], "accepted")
}

func TestCancelButtonClearsDialog(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", approveCommentToken(11))))
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", tokenCancel)))

	d, err := eng.Dialogs.Active(ctx, 7)
	assert.NoError(err)
	assert.Nil(d)

	// the item is untouched
	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusPending, it.Status)
}

func TestCommentDialogAgainstDecidedItem(t *testing.T) {
	// the dialog target is revalidated at resolution time, not open time
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", approveCommentToken(11))))

	// meanwhile moderator 9 decides it directly
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(9, "mod9", rejectToken(11))))

	// moderator 7's comment arrives too late
	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(7, "mod7", "lovely")))
	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusRejected, it.Status)

	found := false
	for _, txt := range mock.TextsTo(testReviewChatID) {
		if txt == "that submission was already handled" {
			found = true
		}
	}
	assert.True(found)
}

func TestAdminPanelAndQueueClear(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	assert.ErrorIs(eng.SendAdminPanel(ctx, 7, transport.Destination{ChatID: testReviewChatID}), ErrForbidden)
	assert.NoError(eng.SendAdminPanel(ctx, 1, transport.Destination{ChatID: testReviewChatID}))

	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(12, 101, "", "p2")))

	// non-admin denied
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(7, "mod7", tokenClearQueue)))
	st, err := eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(2, st.PendingCount)

	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(1, "boss", tokenClearQueue)))
	st, err = eng.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(0, st.PendingCount)
	// history survives the purge
	assert.Equal(2, st.TotalSubmitted)

	ans := mock.Answers[len(mock.Answers)-1]
	assert.Contains(ans.Text, "2 items removed")
}

func TestRosterEditFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	// admin grants moderator to 55 through the roster dialog
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(1, "boss", rosterToken("add", "moderator"))))
	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(1, "boss", "55")))
	assert.True(eng.Settings.IsModerator(55))

	// the fresh moderator can decide immediately
	require.NoError(t, eng.ProcessPrivateMessage(ctx, photoMessage(11, 100, "", "p1")))
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(55, "mod55", approveToken(11))))
	it, err := eng.Queue.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(modqueue.StatusApproved, it.Status)

	// removing the only admin is a conflict, roster unchanged
	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(1, "boss", rosterToken("remove", "admin"))))
	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(1, "boss", "1")))
	assert.True(eng.Settings.IsAdmin(1))
	found := false
	for _, txt := range mock.TextsTo(testReviewChatID) {
		if txt == "cannot remove the last admin" {
			found = true
		}
	}
	assert.True(found)
}

func TestSettingDialogInvalidKeepsRetrying(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	mock := eng.Transport.(*transport.MockClient)

	require.NoError(t, eng.ProcessCallback(ctx, buttonPress(1, "boss", setFieldToken("maxPendingPosts"))))
	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(1, "boss", "over 9000")))

	// constraint reported, dialog still open
	found := false
	for _, txt := range mock.TextsTo(testReviewChatID) {
		if txt == "enter a number between 10 and 1000" {
			found = true
		}
	}
	assert.True(found)
	d, err := eng.Dialogs.Active(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, d)

	require.NoError(t, eng.ProcessReviewMessage(ctx, reviewText(1, "boss", "500")))
	assert.Equal(500, eng.Settings.Get().MaxPendingPosts)
}
