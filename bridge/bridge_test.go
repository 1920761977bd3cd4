package bridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/event"
	"github.com/c360/botkit/testutil"
)

func dispatchEnvelope(t string, seq string) event.Envelope {
	return event.Envelope{
		Op:   event.OpDispatch,
		Type: t,
		Seq:  seq,
		Data: json.RawMessage(`{"message":` + testutil.MessageEntity + `}`),
	}
}

func TestBridge_PublishesDispatchFrames(t *testing.T) {
	pub := testutil.NewMockNATSClient()
	b := New(pub, "bot.helper")

	b.Publish(context.Background(), dispatchEnvelope(event.TypeMessageCreated, "s1"))

	msgs := pub.GetMessages("bot.helper.message_created")
	require.Len(t, msgs, 1)

	var out event.Envelope
	require.NoError(t, json.Unmarshal(msgs[0], &out))
	assert.Equal(t, event.OpDispatch, out.Op)
	assert.Equal(t, event.TypeMessageCreated, out.Type)
	assert.Equal(t, "s1", out.Seq)
	assert.NotEmpty(t, out.Data)
}

func TestBridge_SubjectMapping(t *testing.T) {
	b := New(nil, "bot.helper.")

	assert.Equal(t, "bot.helper.message_created", b.Subject("MessageCreated"))
	assert.Equal(t, "bot.helper.member_joined", b.Subject("MemberJoined"))
	assert.Equal(t, "bot.helper.server_updated", b.Subject("ServerUpdated"))
}

func TestBridge_SkipsNonDispatchFrames(t *testing.T) {
	pub := testutil.NewMockNATSClient()
	b := New(pub, "bot.helper")

	b.Publish(context.Background(), event.Envelope{Op: event.OpWelcome})
	b.Publish(context.Background(), event.Envelope{Op: event.OpDispatch}) // no type

	assert.Equal(t, 0, pub.TotalMessageCount())
}

func TestBridge_PublishFailureIsNotFatal(t *testing.T) {
	pub := testutil.NewMockNATSClient()
	pub.FailWith(errors.ErrNoConnection)
	b := New(pub, "bot.helper")

	// Must not panic or propagate; the bot keeps processing events.
	b.Publish(context.Background(), dispatchEnvelope(event.TypeMessageCreated, "s1"))
	assert.Equal(t, 0, pub.TotalMessageCount())
}

func TestBridge_JetStreamRouting(t *testing.T) {
	pub := testutil.NewMockNATSClient()
	b := New(pub, "bot.helper", WithJetStream())

	b.Publish(context.Background(), dispatchEnvelope(event.TypeMessageDeleted, "s2"))

	assert.Equal(t, 0, pub.TotalMessageCount())
	assert.Len(t, pub.GetStreamMessages("bot.helper.message_deleted"), 1)
}
