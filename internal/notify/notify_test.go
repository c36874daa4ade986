package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	messages []string
}

func (r *recorder) Notify(_ context.Context, message string) {
	r.messages = append(r.messages, message)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	n.Notify(context.Background(), "could not delete")

	assert.Contains(t, buf.String(), `msg="user notice"`)
	assert.Contains(t, buf.String(), `message="could not delete"`)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, b}.Notify(context.Background(), "hello")

	assert.Equal(t, []string{"hello"}, a.messages)
	assert.Equal(t, []string{"hello"}, b.messages)
}

func TestTelegramNotify(t *testing.T) {
	var mu sync.Mutex
	var sent []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok": true, "result": {"id": 1, "is_bot": true, "first_name": "planner", "username": "planner_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			mu.Lock()
			sent = append(sent, r.FormValue("chat_id")+":"+r.FormValue("text"))
			mu.Unlock()
			fmt.Fprint(w, `{"ok": true, "result": {"message_id": 5, "date": 0, "chat": {"id": 42, "type": "private"}}}`)
		default:
			t.Errorf("unexpected telegram call %s", r.URL.Path)
		}
	}))
	defer server.Close()

	n, err := NewTelegramWithEndpoint("token", server.URL+"/bot%s/%s", 42, server.Client(), nil)
	require.NoError(t, err)

	n.Notify(context.Background(), "There was an error deleting the planned recipe.")
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"42:⚠️ There was an error deleting the planned recipe."}, sent)
}
