package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/edgard/autoacceptbot/internal/bot/handlers"
	"github.com/edgard/autoacceptbot/internal/broadcast"
	"github.com/edgard/autoacceptbot/internal/config"
	"github.com/edgard/autoacceptbot/internal/database"
	"github.com/edgard/autoacceptbot/internal/telegram"
)

const adminID = int64(100)

type apiCall struct {
	Method string
	Params map[string]string
}

type apiFailure struct {
	Code        int
	Description string
	RetryAfter  int
}

// fakeBotAPI is an in-process Bot API server that records every request.
type fakeBotAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	fail   map[string]apiFailure // keyed by "method:chat_id"
	nextID int
}

func newFakeBotAPI(t *testing.T) (*fakeBotAPI, *bot.Bot) {
	t.Helper()

	f := &fakeBotAPI{fail: make(map[string]apiFailure), nextID: 1000}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	b, err := bot.New("123456:TEST", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	return f, b
}

func (f *fakeBotAPI) failOn(method string, chatID int64, failure apiFailure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[fmt.Sprintf("%s:%d", method, chatID)] = failure
}

func readParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body {
			if s, ok := v.(string); ok {
				params[k] = s
				continue
			}
			raw, _ := json.Marshal(v)
			params[k] = string(raw)
		}
		return params
	}

	_ = r.ParseMultipartForm(1 << 20)
	for k, v := range r.PostForm {
		if len(v) == 0 {
			continue
		}
		val := v[0]
		var s string
		if strings.HasPrefix(val, `"`) && json.Unmarshal([]byte(val), &s) == nil {
			val = s
		}
		params[k] = val
	}
	return params
}

func (f *fakeBotAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	params := readParams(r)
	chatID, _ := strconv.ParseInt(params["chat_id"], 10, 64)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Params: params})
	failure, failed := f.fail[fmt.Sprintf("%s:%d", method, chatID)]
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failed {
		resp := map[string]any{"ok": false, "error_code": failure.Code, "description": failure.Description}
		if failure.RetryAfter > 0 {
			resp["parameters"] = map[string]any{"retry_after": failure.RetryAfter}
		}
		w.WriteHeader(failure.Code)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	var result any
	switch method {
	case "sendMessage", "editMessageText":
		result = map[string]any{"message_id": id, "date": 0, "chat": map[string]any{"id": chatID, "type": "private"}}
	case "copyMessage":
		result = map[string]any{"message_id": id}
	case "getMe":
		result = map[string]any{"id": 1, "is_bot": true, "first_name": "Bot", "username": "test_bot"}
	default:
		result = true
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeBotAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBotAPI) sentTo(chatID int64) []apiCall {
	want := strconv.FormatInt(chatID, 10)
	var out []apiCall
	for _, c := range f.callsTo("sendMessage") {
		if c.Params["chat_id"] == want {
			out = append(out, c)
		}
	}
	return out
}

type env struct {
	api   *fakeBotAPI
	bot   *bot.Bot
	store database.Store
	deps  handlers.HandlerDeps
}

func newEnv(t *testing.T, recipients ...int64) *env {
	t.Helper()

	api, b := newFakeBotAPI(t)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	store := database.NewStore(db, nil)

	for _, id := range recipients {
		_, err := store.AddRecipient(context.Background(), id, database.SourceStart)
		require.NoError(t, err)
	}

	cfg := &config.Config{
		Telegram: config.TelegramConfig{AdminIDs: []int64{adminID}},
		Messages: config.DefaultMessages,
		Buttons:  config.DefaultButtons,
	}

	channel := telegram.NewChannel(b, 1000, 5*time.Second, nil)
	dispatcher := broadcast.NewDispatcher(store, channel, broadcast.Options{ProgressEvery: 2}, nil,
		broadcast.WithRenderer(cfg.Messages.Renderer()),
		broadcast.WithSleep(func(context.Context, time.Duration) error { return nil }))

	return &env{
		api:   api,
		bot:   b,
		store: store,
		deps: handlers.HandlerDeps{
			Logger:     slogDiscard(),
			Config:     cfg,
			Store:      store,
			Broadcasts: broadcast.NewManager(dispatcher, nil),
		},
	}
}

func (e *env) recipients(t *testing.T) []int64 {
	t.Helper()

	var ids []int64
	for r, err := range e.store.Recipients(context.Background(), 100) {
		require.NoError(t, err)
		ids = append(ids, r.UserID)
	}
	return ids
}

func (e *env) waitJobs(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.deps.Broadcasts.Wait(ctx))
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func command(from int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   7,
			Chat: models.Chat{ID: from, Type: "private"},
			From: &models.User{ID: from, FirstName: "Ann"},
			Text: text,
		},
	}
}
