package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("v1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3\n", out)
}

func TestGroupIDCommand(t *testing.T) {
	isolate(t)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/bot123:abc/getUpdates"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":1,"message":{"message_id":10,"chat":{"id":-1001,"type":"supergroup","title":"Support"},"text":"hi"}},
			{"update_id":2,"message":{"message_id":11,"chat":{"id":42,"type":"private"},"text":"dm"}},
			{"update_id":3,"message":{"message_id":12,"chat":{"id":-1001,"type":"supergroup","title":"Support"},"text":"again"}}
		]}`))
	}))
	defer api.Close()

	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("SMILE_TELEGRAM_BASE_URL", api.URL)
	t.Setenv("SMILE_SUPPORT_LOCALE", "en")

	out, err := run(t, "group-id")
	require.NoError(t, err)
	assert.Contains(t, out, "Groups found:")
	assert.Contains(t, out, "1. Title: Support")
	assert.Contains(t, out, "ID: -1001")
	assert.NotContains(t, out, "2. ")
}

func TestGroupIDCommand_RequiresToken(t *testing.T) {
	isolate(t)
	t.Setenv("SMILE_SUPPORT_LOCALE", "en")
	_, err := run(t, "group-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestServeRequiresTelegram(t *testing.T) {
	isolate(t)
	_, err := run(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token")
}
