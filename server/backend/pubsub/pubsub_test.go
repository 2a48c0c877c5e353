/*
 * Copyright 2026 The Textsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/backend/pubsub"
)

func receive(t *testing.T, sub *pubsub.Subscription) *types.Message {
	select {
	case msg := <-sub.Events():
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func assertEmpty(t *testing.T, sub *pubsub.Subscription) {
	select {
	case msg := <-sub.Events():
		t.Fatalf("unexpected message: %v", msg)
	default:
	}
}

func TestPubSub(t *testing.T) {
	ctx := context.Background()

	t.Run("broadcast excludes the publisher test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Options{})
		subA := ps.Subscribe(ctx, "alice")
		subB := ps.Subscribe(ctx, "bob")
		defer ps.Unsubscribe(ctx, subA)
		defer ps.Unsubscribe(ctx, subB)

		require.NoError(t, ps.Attach(ctx, "d1", subA.ID()))
		require.NoError(t, ps.Attach(ctx, "d1", subB.ID()))
		assert.ElementsMatch(t, []types.ID{subA.ID(), subB.ID()}, ps.Members("d1"))

		msg := &types.Message{Type: types.MessageOperationApplied, DocumentID: "d1", Version: 1}
		require.NoError(t, ps.Broadcast(ctx, "d1", msg, subA.ID()))
		assert.Equal(t, msg, receive(t, subB))
		assertEmpty(t, subA)
	})

	t.Run("send test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Options{})
		sub := ps.Subscribe(ctx, "alice")

		msg := &types.Message{Type: types.MessageAck, Version: 3}
		require.NoError(t, ps.Send(ctx, sub.ID(), msg))
		assert.Equal(t, msg, receive(t, sub))

		ps.Unsubscribe(ctx, sub)
		assert.ErrorIs(t, ps.Send(ctx, sub.ID(), msg), pubsub.ErrSubscriptionNotFound)
	})

	t.Run("slow subscriber does not block others test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Options{BufferSize: 1})
		slow := ps.Subscribe(ctx, "slow")
		fast := ps.Subscribe(ctx, "fast")
		require.NoError(t, ps.Attach(ctx, "d1", slow.ID()))
		require.NoError(t, ps.Attach(ctx, "d1", fast.ID()))

		first := &types.Message{Type: types.MessageOperationApplied, Version: 1}
		second := &types.Message{Type: types.MessageOperationApplied, Version: 2}
		require.NoError(t, ps.Broadcast(ctx, "d1", first, ""))
		assert.Equal(t, first, receive(t, fast))

		// slow never drains its queue, so the second message times out there.
		err := ps.Broadcast(ctx, "d1", second, "")
		assert.ErrorIs(t, err, pubsub.ErrPublishFailed)
		assert.Equal(t, second, receive(t, fast))
	})

	t.Run("subscriber limit test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Options{MaxSubscribersPerDocument: 1})
		subA := ps.Subscribe(ctx, "alice")
		subB := ps.Subscribe(ctx, "bob")

		require.NoError(t, ps.Attach(ctx, "d1", subA.ID()))
		require.NoError(t, ps.Attach(ctx, "d1", subA.ID()))
		assert.ErrorIs(t, ps.Attach(ctx, "d1", subB.ID()), pubsub.ErrTooManySubscribers)

		ps.Detach(ctx, "d1", subA.ID())
		assert.Empty(t, ps.Members("d1"))
		assert.NoError(t, ps.Attach(ctx, "d1", subB.ID()))
	})

	t.Run("presence messages are coalesced test", func(t *testing.T) {
		ps := pubsub.New(pubsub.Options{PresenceWindow: 100 * time.Millisecond})
		subA := ps.Subscribe(ctx, "alice")
		subB := ps.Subscribe(ctx, "bob")
		defer ps.Unsubscribe(ctx, subA)
		defer ps.Unsubscribe(ctx, subB)
		require.NoError(t, ps.Attach(ctx, "d1", subA.ID()))
		require.NoError(t, ps.Attach(ctx, "d1", subB.ID()))

		for i := 0; i < 5; i++ {
			cursor := i
			msg := &types.Message{Type: types.MessagePresence, UserID: "alice", Cursor: &cursor}
			require.NoError(t, ps.Broadcast(ctx, "d1", msg, subA.ID()))
		}

		msg := receive(t, subB)
		assert.Equal(t, 4, *msg.Cursor)
		assertEmpty(t, subA)

		time.Sleep(250 * time.Millisecond)
		assertEmpty(t, subB)
	})
}
