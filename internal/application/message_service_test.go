package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
)

func TestSendMessage_RejectedReceiverPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")

	_, err := f.messages.SetAcceptMessages(ctx, alice.ID, false)
	require.NoError(t, err)

	_, err = f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "hello"})
	assert.ErrorIs(t, err, ErrRejected)

	n, err := f.store.Messages().CountByReceiver(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messages.SendMessage(ctx, SendInput{Username: "ghost", Content: "   "})
	assert.ErrorIs(t, err, ErrValidation, "content is checked before the receiver lookup")

	_, err = f.messages.SendMessage(ctx, SendInput{Username: "ghost", Content: strings.Repeat("x", 1001)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.messages.SendMessage(ctx, SendInput{Username: "ghost", Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessage_FilesUnderTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")

	m1, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "one", Topic: "  Work "})
	require.NoError(t, err)
	m2, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "two", Topic: "WORK"})
	require.NoError(t, err)

	topics, err := f.topics.ListTopics(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "work", topics[0].Title)
	assert.Equal(t, 2, topics[0].MessageCount)

	page, err := f.topics.GetTopicMessages(ctx, alice.ID, "Work", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, m1.ID, page.Messages[0].ID)
	assert.Equal(t, m2.ID, page.Messages[1].ID)
}

func TestSendMessage_TopicFailureKeepsMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")
	f.messages.Topics = brokenAppendTopics{TopicRepository: f.store.Topics(), err: errors.New("topics down")}

	m, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "kept", Topic: "work"})
	require.NoError(t, err)
	require.NotNil(t, m)

	page, err := f.messages.ListMessages(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, m.ID, page.Messages[0].ID)
}

func TestListMessages_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")

	for i := 0; i < 23; i++ {
		_, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
	}

	page, err := f.messages.ListMessages(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 23, page.TotalMessages)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Messages, 10)

	page, err = f.messages.ListMessages(ctx, alice.ID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 3)

	page, err = f.messages.ListMessages(ctx, alice.ID, 4, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Messages)
	assert.Empty(t, page.Messages)
	assert.Equal(t, 3, page.TotalPages)

	page, err = f.messages.ListMessages(ctx, alice.ID, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Messages, 23)
}

func TestListMessages_Empty(t *testing.T) {
	f := newFixture(t)
	alice := f.verifiedUser(t, "alice")

	page, err := f.messages.ListMessages(context.Background(), alice.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, page.Limit)
	assert.Zero(t, page.TotalPages)
	assert.Empty(t, page.Messages)
}

func TestDeleteMessage_RemovesFromEveryTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")

	m, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "tagged", Topic: "one"})
	require.NoError(t, err)
	other, err := f.topics.CreateTopic(ctx, alice.ID, "two")
	require.NoError(t, err)
	require.NoError(t, f.store.Topics().AppendMessage(ctx, other.ID, m.ID))

	require.NoError(t, f.messages.DeleteMessage(ctx, alice.ID, m.ID))

	topics, err := f.topics.ListTopics(ctx, alice.ID)
	require.NoError(t, err)
	for _, tp := range topics {
		has, err := f.store.Topics().HasMessage(ctx, tp.ID, m.ID)
		require.NoError(t, err)
		assert.False(t, has, "topic %s still references the message", tp.Title)
		assert.Zero(t, tp.MessageCount)
	}
	assert.ErrorIs(t, f.messages.DeleteMessage(ctx, alice.ID, m.ID), ErrNotFound)
}

func TestMutations_OnlyReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "alice")
	bob := f.verifiedUser(t, "bob")

	m, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "for alice"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.messages.DeleteMessage(ctx, bob.ID, m.ID), ErrForbidden)
	_, err = f.messages.UpdateMessage(ctx, bob.ID, m.ID, "hijacked")
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.store.Messages().GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "for alice", stored.Text)

	assert.ErrorIs(t, f.messages.DeleteMessage(ctx, bob.ID, "not-a-uuid"), ErrValidation)
}

func TestUpdateMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")

	m, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "draft"})
	require.NoError(t, err)

	_, err = f.messages.UpdateMessage(ctx, alice.ID, m.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := f.messages.UpdateMessage(ctx, alice.ID, m.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Text)
}

func TestAcceptMessagesToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")

	on, err := f.messages.AcceptMessages(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, on)

	for i := 0; i < 2; i++ {
		state, err := f.messages.SetAcceptMessages(ctx, alice.ID, false)
		require.NoError(t, err)
		assert.False(t, state)
	}
	on, err = f.messages.AcceptMessages(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, on)
}

type fakeIndex struct {
	indexed map[string]entity.Message
	deleted []string
	err     error
}

func (x *fakeIndex) Index(_ context.Context, m entity.Message) error {
	if x.indexed == nil {
		x.indexed = map[string]entity.Message{}
	}
	x.indexed[m.ID] = m
	return x.err
}

func (x *fakeIndex) Delete(_ context.Context, id string) error {
	x.deleted = append(x.deleted, id)
	return x.err
}

func (x *fakeIndex) Search(_ context.Context, receiverID, q string, _ int) ([]entity.Message, error) {
	out := []entity.Message{}
	for _, m := range x.indexed {
		if m.ReceiverID == receiverID && strings.Contains(m.Text, q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func TestSearchMessages_KeepsIndexInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idx := &fakeIndex{}
	f.messages.Index = idx
	alice := f.verifiedUser(t, "alice")
	bob := f.verifiedUser(t, "bob")

	m, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: "great talk"})
	require.NoError(t, err)
	_, err = f.messages.SendMessage(ctx, SendInput{Username: "bob", Content: "great idea"})
	require.NoError(t, err)

	hits, err := f.messages.SearchMessages(ctx, alice.ID, "great", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, m.ID, hits[0].ID)

	hits, err = f.messages.SearchMessages(ctx, bob.ID, "talk", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, f.messages.DeleteMessage(ctx, alice.ID, m.ID))
	assert.Equal(t, []string{m.ID}, idx.deleted)

	_, err = f.messages.SearchMessages(ctx, alice.ID, "  ", 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchMessages_IndexFailureDoesNotBlockSend(t *testing.T) {
	f := newFixture(t)
	f.messages.Index = &fakeIndex{err: errors.New("es down")}
	f.verifiedUser(t, "alice")

	_, err := f.messages.SendMessage(context.Background(), SendInput{Username: "alice", Content: "still stored"})
	assert.NoError(t, err)
}

func TestSearchMessages_Disabled(t *testing.T) {
	f := newFixture(t)
	alice := f.verifiedUser(t, "alice")

	hits, err := f.messages.SearchMessages(context.Background(), alice.ID, "x", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

type fakeArchive struct {
	userID string
	data   []byte
}

func (a *fakeArchive) Put(_ context.Context, userID string, data []byte) (string, error) {
	a.userID, a.data = userID, data
	return "https://storage.example/exports/" + userID + ".json", nil
}

func TestExportMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.verifiedUser(t, "alice")

	_, err := f.messages.ExportMessages(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrExportUnavailable)

	archive := &fakeArchive{}
	f.messages.Archive = archive
	for i := 0; i < 3; i++ {
		_, err := f.messages.SendMessage(ctx, SendInput{Username: "alice", Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	exp, err := f.messages.ExportMessages(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, exp.Count)
	assert.Equal(t, alice.ID, archive.userID)
	assert.Contains(t, string(archive.data), `"m2"`)
}
