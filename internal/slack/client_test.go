package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	mu        sync.Mutex
	calls     map[string]int
	forms     map[string][]map[string]string
	responses map[string]func(form map[string]string) any
}

func newFakeSlack(t *testing.T) (*fakeSlack, *Client) {
	t.Helper()
	f := &fakeSlack{
		calls:     map[string]int{},
		forms:     map[string][]map[string]string{},
		responses: map[string]func(map[string]string) any{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		method := r.URL.Path[1:]
		form := map[string]string{}
		for k := range r.Form {
			form[k] = r.Form.Get(k)
		}

		f.mu.Lock()
		f.calls[method]++
		f.forms[method] = append(f.forms[method], form)
		respond := f.responses[method]
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if respond == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
			return
		}
		_ = json.NewEncoder(w).Encode(respond(form))
	}))
	t.Cleanup(srv.Close)
	return f, New("xoxb-test", WithAPIURL(srv.URL))
}

func (f *fakeSlack) on(method string, fn func(form map[string]string) any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = fn
}

func TestListConversations_FollowsCursor(t *testing.T) {
	f, client := newFakeSlack(t)
	f.on("conversations.list", func(form map[string]string) any {
		if form["cursor"] == "" {
			return map[string]any{
				"ok": true,
				"channels": []map[string]any{
					{"id": "C1", "name": "general", "is_channel": true},
					{"id": "D1", "is_im": true, "user": "U1"},
				},
				"response_metadata": map[string]any{"next_cursor": "page2"},
			}
		}
		return map[string]any{
			"ok": true,
			"channels": []map[string]any{
				{"id": "G1", "name": "mpdm-a--b", "is_mpim": true, "is_private": true},
			},
			"response_metadata": map[string]any{"next_cursor": ""},
		}
	})

	convs, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 3)

	assert.Equal(t, "C1", convs[0].ID)
	assert.Equal(t, "general", convs[0].Name)
	assert.True(t, convs[0].IsChannel)

	assert.Equal(t, "D1", convs[1].ID)
	assert.True(t, convs[1].IsIM)
	assert.Equal(t, "U1", convs[1].User)

	assert.True(t, convs[2].IsMpIM)
	assert.True(t, convs[2].IsPrivate)

	assert.Equal(t, 2, f.calls["conversations.list"])
	first := f.forms["conversations.list"][0]
	assert.Equal(t, "public_channel,private_channel,im,mpim", first["types"])
	assert.Equal(t, "true", first["exclude_archived"])
	assert.Equal(t, "page2", f.forms["conversations.list"][1]["cursor"])
}

func TestListConversations_ErrorAborts(t *testing.T) {
	f, client := newFakeSlack(t)
	f.on("conversations.list", func(map[string]string) any {
		return map[string]any{"ok": false, "error": "invalid_auth"}
	})

	_, err := client.ListConversations(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "conversations.list", apiErr.Method)
	assert.Equal(t, "invalid_auth", apiErr.Code)
}

func TestHistory_FiltersNonText(t *testing.T) {
	f, client := newFakeSlack(t)
	f.on("conversations.history", func(map[string]string) any {
		return map[string]any{
			"ok": true,
			"messages": []map[string]any{
				{"type": "message", "user": "U1", "text": "send the report by Friday", "ts": "1760000000.000100", "thread_ts": "1760000000.000001"},
				{"type": "message", "user": "U2", "text": "", "ts": "1760000000.000200"},
				{"type": "reaction", "user": "U2", "text": "ignored", "ts": "1760000000.000300"},
				{"type": "message", "user": "U2", "text": "ok", "ts": "1760000000.000400"},
			},
		}
	})

	oldest := time.Unix(1759000000, 999)
	msgs, err := client.History(context.Background(), "D1", 50, oldest)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "U1", msgs[0].User)
	assert.Equal(t, "send the report by Friday", msgs[0].Text)
	assert.Equal(t, "1760000000.000100", msgs[0].Timestamp)
	assert.Equal(t, "1760000000.000001", msgs[0].ThreadTimestamp)
	assert.Equal(t, "ok", msgs[1].Text)

	form := f.forms["conversations.history"][0]
	assert.Equal(t, "D1", form["channel"])
	assert.Equal(t, "50", form["limit"])
	assert.Equal(t, "1759000000", form["oldest"])
}

func TestHistory_Error(t *testing.T) {
	f, client := newFakeSlack(t)
	f.on("conversations.history", func(map[string]string) any {
		return map[string]any{"ok": false, "error": "not_in_channel"}
	})

	_, err := client.History(context.Background(), "C1", 50, time.Time{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_in_channel", apiErr.Code)
}

func TestResolveDisplayNames(t *testing.T) {
	f, client := newFakeSlack(t)
	f.on("users.info", func(form map[string]string) any {
		switch form["user"] {
		case "U1":
			return map[string]any{"ok": true, "user": map[string]any{"id": "U1", "name": "dhara", "real_name": "Dhara Tanwani"}}
		case "U2":
			return map[string]any{"ok": true, "user": map[string]any{"id": "U2", "name": "sam"}}
		default:
			return map[string]any{"ok": false, "error": "user_not_found"}
		}
	})

	names := client.ResolveDisplayNames(context.Background(), []string{"U1", "U2", "U1", "", "U9"})

	assert.Equal(t, map[string]string{
		"U1": "Dhara Tanwani",
		"U2": "sam",
		"U9": "U9",
	}, names)
	assert.Equal(t, 3, f.calls["users.info"])
}
