package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/edgard/autoacceptbot/internal/bot/handlers"
	"github.com/edgard/autoacceptbot/internal/database"
)

func TestStartHandler_RegistersAndWelcomes(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	handlers.NewStartHandler(e.deps)(context.Background(), e.bot, command(42, "/start"))

	require.Equal(t, []int64{42}, e.recipients(t))

	sent := e.api.sentTo(42)
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].Params["text"], `<a href="tg://user?id=42">Ann</a>`)
	require.Equal(t, "HTML", sent[0].Params["parse_mode"])
	require.Contains(t, sent[0].Params["reply_markup"], "https://t.me/QuantumEthics")

	// A second /start keeps a single registration.
	handlers.NewStartHandler(e.deps)(context.Background(), e.bot, command(42, "/start"))
	require.Equal(t, []int64{42}, e.recipients(t))
}

func TestStartHandler_IgnoresGroups(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	upd := command(42, "/start")
	upd.Message.Chat = models.Chat{ID: -500, Type: "supergroup"}
	handlers.NewStartHandler(e.deps)(context.Background(), e.bot, upd)

	require.Empty(t, e.recipients(t))
	require.Empty(t, e.api.callsTo("sendMessage"))
}

func joinRequest(userID, userChatID int64) *models.Update {
	return &models.Update{
		ID: 2,
		ChatJoinRequest: &models.ChatJoinRequest{
			Chat:       models.Chat{ID: -1001, Title: "News & Co", Type: "channel"},
			From:       models.User{ID: userID, FirstName: "Bob"},
			UserChatID: userChatID,
		},
	}
}

func TestJoinRequestHandler_ApprovesAndNotifies(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	require.True(t, handlers.IsJoinRequest(joinRequest(55, 55)))
	require.False(t, handlers.IsJoinRequest(command(1, "/start")))

	handlers.NewJoinRequestHandler(e.deps)(context.Background(), e.bot, joinRequest(55, 555))

	require.Equal(t, []int64{55}, e.recipients(t))

	approvals := e.api.callsTo("approveChatJoinRequest")
	require.Len(t, approvals, 1)
	require.Equal(t, "-1001", approvals[0].Params["chat_id"])
	require.Equal(t, "55", approvals[0].Params["user_id"])

	sent := e.api.sentTo(555)
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].Params["text"], "News &amp; Co")
	require.Contains(t, sent[0].Params["text"], "tg://user?id=55")
}

func TestJoinRequestHandler_ApprovalFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.api.failOn("approveChatJoinRequest", -1001, apiFailure{Code: http.StatusBadRequest, Description: "Bad Request: HIDE_REQUESTER_MISSING"})

	handlers.NewJoinRequestHandler(e.deps)(context.Background(), e.bot, joinRequest(56, 0))

	require.Equal(t, []int64{56}, e.recipients(t), "requester is recorded even when approval fails")
	require.Empty(t, e.api.callsTo("sendMessage"))
}

func TestJoinRequestHandler_ConfirmationFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.api.failOn("sendMessage", 57, apiFailure{Code: http.StatusForbidden, Description: "Forbidden: bot can't initiate conversation with a user"})

	handlers.NewJoinRequestHandler(e.deps)(context.Background(), e.bot, joinRequest(57, 0))

	require.Len(t, e.api.callsTo("approveChatJoinRequest"), 1)
	require.Equal(t, []int64{57}, e.recipients(t))
}

func TestAdminOnly(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	called := false
	h := handlers.AdminOnly(e.deps)(func(context.Context, *bot.Bot, *models.Update) { called = true })

	h(context.Background(), e.bot, command(9, "/stats"))
	require.False(t, called)
	sent := e.api.sentTo(9)
	require.Len(t, sent, 1)
	require.Equal(t, e.deps.Config.Messages.NotAuthorized, sent[0].Params["text"])

	h(context.Background(), e.bot, command(adminID, "/stats"))
	require.True(t, called)
}

func TestStatsHandler(t *testing.T) {
	t.Parallel()
	e := newEnv(t, 1, 2, 3)

	handlers.NewStatsHandler(e.deps)(context.Background(), e.bot, command(adminID, "/users"))

	sent := e.api.sentTo(adminID)
	require.Len(t, sent, 1)
	require.Equal(t, "Total Users: 3", sent[0].Params["text"])
}

func TestBroadcastHandler_NoPayload(t *testing.T) {
	t.Parallel()
	e := newEnv(t, 1)

	handlers.NewBroadcastHandler(e.deps)(context.Background(), e.bot, command(adminID, "/broadcast   "))

	sent := e.api.sentTo(adminID)
	require.Len(t, sent, 1)
	require.Equal(t, e.deps.Config.Messages.NoPayload, sent[0].Params["text"])
	require.Empty(t, e.deps.Broadcasts.Running())
}

func TestBroadcastHandler_NoRecipients(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	handlers.NewBroadcastHandler(e.deps)(context.Background(), e.bot, command(adminID, "/broadcast hi"))

	sent := e.api.sentTo(adminID)
	require.Len(t, sent, 1)
	require.Equal(t, e.deps.Config.Messages.NoRecipients, sent[0].Params["text"])
}

func TestBroadcastHandler_SendsTextAndPrunes(t *testing.T) {
	t.Parallel()
	e := newEnv(t, 1, 2, 3, 4)
	e.api.failOn("sendMessage", 2, apiFailure{Code: http.StatusForbidden, Description: "Forbidden: bot was blocked by the user"})
	e.api.failOn("sendMessage", 3, apiFailure{Code: http.StatusBadRequest, Description: "Bad Request: chat not found"})

	handlers.NewBroadcastHandler(e.deps)(context.Background(), e.bot, command(adminID, "/broadcast hello\nworld"))
	e.waitJobs(t)

	for _, id := range []int64{1, 2, 3, 4} {
		sent := e.api.sentTo(id)
		require.Len(t, sent, 1, "recipient %d", id)
		require.Equal(t, "hello\nworld", sent[0].Params["text"])
	}

	require.Equal(t, []int64{1, 2, 4}, e.recipients(t), "unreachable recipient is removed, blocked one is kept")

	admin := e.api.sentTo(adminID)
	require.Len(t, admin, 2, "status message and final summary")
	require.Equal(t, e.deps.Config.Messages.Started, admin[0].Params["text"])
	require.Contains(t, admin[1].Params["text"], "Broadcast Completed")
	require.Contains(t, admin[1].Params["text"], "Success: 2")
	require.Contains(t, admin[1].Params["text"], "Failed: 2")

	require.Len(t, e.api.callsTo("editMessageText"), 2, "progress every 2 recipients")
	deletes := e.api.callsTo("deleteMessage")
	require.Len(t, deletes, 1)
	require.Equal(t, strconv.FormatInt(adminID, 10), deletes[0].Params["chat_id"])
}

func TestBroadcastHandler_CopiesRepliedMessage(t *testing.T) {
	t.Parallel()
	e := newEnv(t, 1, 2)

	upd := command(adminID, "/broadcast ignored text")
	upd.Message.ReplyToMessage = &models.Message{ID: 33, Chat: models.Chat{ID: adminID}}
	handlers.NewBroadcastHandler(e.deps)(context.Background(), e.bot, upd)
	e.waitJobs(t)

	copies := e.api.callsTo("copyMessage")
	require.Len(t, copies, 2)
	for _, c := range copies {
		require.Equal(t, "33", c.Params["message_id"])
		require.Equal(t, strconv.FormatInt(adminID, 10), c.Params["from_chat_id"])
	}
	require.Empty(t, e.api.sentTo(1))
	require.Equal(t, []int64{1, 2}, e.recipients(t))
}

func TestCancelHandler_NothingRunning(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	handlers.NewCancelHandler(e.deps)(context.Background(), e.bot, command(adminID, "/cancel"))

	sent := e.api.sentTo(adminID)
	require.Len(t, sent, 1)
	require.Equal(t, e.deps.Config.Messages.NothingToCancel, sent[0].Params["text"])
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	registered := handlers.RegisterAllCommands(e.deps)
	for _, name := range []string{"/start", "/stats", "/users", "/broadcast", "/cancel", "join_request"} {
		h, ok := registered[name]
		require.True(t, ok, name)
		require.NotNil(t, h.Handler, name)
	}
	require.NotNil(t, registered["join_request"].MatchFunc)
	require.Len(t, registered["/broadcast"].Middleware, 1)
	require.Empty(t, registered["/start"].Middleware)
}

// failingStore fails the wrapped store's count and insert calls.
type failingStore struct {
	database.Store
	err error
}

func (s failingStore) CountRecipients(context.Context) (int, error) { return 0, s.err }

func (s failingStore) AddRecipient(context.Context, int64, string) (bool, error) {
	return false, s.err
}

func TestBroadcastHandler_StoreFailureReplies(t *testing.T) {
	t.Parallel()
	e := newEnv(t, 1)
	e.deps.Store = failingStore{Store: e.store, err: errors.New("database is locked")}

	handlers.NewBroadcastHandler(e.deps)(context.Background(), e.bot, command(adminID, "/broadcast hi"))

	sent := e.api.sentTo(adminID)
	require.Len(t, sent, 1)
	require.Equal(t, e.deps.Config.Messages.Unavailable, sent[0].Params["text"])
	require.Empty(t, e.deps.Broadcasts.Running())
	require.Empty(t, e.api.sentTo(1))
}

func TestJoinRequestHandler_ApprovesWhenStoreFails(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.deps.Store = failingStore{Store: e.store, err: errors.New("disk I/O error")}

	handlers.NewJoinRequestHandler(e.deps)(context.Background(), e.bot, joinRequest(58, 0))

	require.Len(t, e.api.callsTo("approveChatJoinRequest"), 1)
	require.Len(t, e.api.sentTo(58), 1, "requester is still told they were accepted")
	require.Empty(t, e.recipients(t))
}
