//go:build integration

package db

import (
	"context"
	"strings"
	"testing"

	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessages(t *testing.T) {
	ctx := context.Background()
	company := "co-" + newID()
	chatID := newID()

	chat, err := testDB.QueryCreateChat(ctx, chatID, models.ChatInput{
		CompanyID: company,
		UserID:    "agent-1",
		Phone:     "5511988887777",
	})
	require.NoError(t, err)
	assert.True(t, chat.Active)

	found, err := testDB.QueryFindChatByPhone(ctx, company, "5511988887777")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, chatID, models.IDString(found.ID))

	found, err = testDB.QueryFindChatByPhone(ctx, "", "5511988887777")
	require.NoError(t, err)
	require.NotNil(t, found)

	long := strings.Repeat("a", 150)
	_, err = testDB.QueryCreateMessage(ctx, newID(), models.MessageInput{
		ChatID:    chatID,
		Direction: models.DirectionIncoming,
		Content:   long,
	})
	require.NoError(t, err)
	msg, err := testDB.QueryCreateMessage(ctx, newID(), models.MessageInput{
		ChatID:    chatID,
		Direction: models.DirectionOutgoing,
		Content:   "Posso ajudar?",
	})
	require.NoError(t, err)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "sent", msg.Status)

	chat, err = testDB.QueryGetChat(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, 1, chat.UnreadCount)
	require.NotNil(t, chat.LastMessagePreview)
	assert.Equal(t, "Posso ajudar?", *chat.LastMessagePreview)

	recent, err := testDB.QueryRecentMessages(ctx, chatID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Posso ajudar?", recent[0].Content)

	require.NoError(t, testDB.QueryMarkChatRead(ctx, chatID))
	chat, err = testDB.QueryGetChat(ctx, chatID)
	require.NoError(t, err)
	assert.Zero(t, chat.UnreadCount)
}

func TestFindChatByPhoneMissing(t *testing.T) {
	chat, err := testDB.QueryFindChatByPhone(context.Background(), "co-none", "000")
	require.NoError(t, err)
	assert.Nil(t, chat)

	_, err = testDB.QueryGetChat(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSuggestionHistory(t *testing.T) {
	ctx := context.Background()
	callID := newID()

	for i := 0; i < 3; i++ {
		_, err := testDB.QueryCreateSuggestion(ctx, newID(), models.SuggestionRecord{
			UserID:      "agent-1",
			CallID:      &callID,
			Category:    "greeting",
			Content:     "Olá!",
			Confidence:  0.9,
			TriggerText: "oi",
			Channel:     "phone_call",
			Model:       "fallback",
		})
		require.NoError(t, err)
	}

	recs, err := testDB.QuerySuggestionsForCall(ctx, callID, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	require.NoError(t, testDB.QueryMarkSuggestionUsed(ctx, models.IDString(recs[0].ID)))
	assert.ErrorIs(t, testDB.QueryMarkSuggestionUsed(ctx, "missing"), ErrNotFound)

	none, err := testDB.QuerySuggestionsForChat(ctx, "no-chat", 20)
	require.NoError(t, err)
	assert.Empty(t, none)
}
