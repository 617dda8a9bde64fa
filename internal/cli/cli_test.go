package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"nova-bot/internal/identity"
)

// fakeAPI records the bodies it receives per path.
type fakeAPI struct {
	mu          sync.Mutex
	bodies      map[string][]map[string]any
	queryStatus int
	queryBody   string
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	t.Helper()
	f := &fakeAPI{
		bodies:      map[string][]map[string]any{},
		queryStatus: http.StatusOK,
		queryBody:   `{"email":"a@b.com","answer":"Your order ships **tomorrow**.","followups":["Cancel order?","Track another order?"],"chat_id":"chat-1"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bodies[r.URL.Path] = append(f.bodies[r.URL.Path], body)
		status, resp := f.queryStatus, f.queryBody
		f.mu.Unlock()

		switch r.URL.Path {
		case "/signin":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"message":"New user registered","user_id":"x"}`)
		case "/query":
			w.WriteHeader(status)
			_, _ = io.WriteString(w, resp)
		default:
			_, _ = io.WriteString(w, `{"message":"Welcome to the Nova-Bot Chat API!"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeAPI) received(path string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

// isolate points HOME, the database and the log at a temp dir.
func isolate(t *testing.T, apiURL string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NOVABOT_API_URL", apiURL)
	t.Setenv("NOVABOT_API_TIMEOUT", "")
	t.Setenv("NOVABOT_DB_PATH", filepath.Join(home, "novabot.db"))
	t.Setenv("NOVABOT_LOG_FILE", filepath.Join(home, "novabot.log"))
	t.Setenv("NOVABOT_LOG_LEVEL", "ERROR")
	return home
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, a := newRoot()
	defer a.teardown(io.Discard)

	var out bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	require.Equal(t, "novabot "+Version+"\n", out)
}

func TestTeam(t *testing.T) {
	out, err := run(t, "", "team")
	require.NoError(t, err)
	require.Contains(t, out, "Anish")
	require.Contains(t, out, "https://www.linkedin.com/in/anish-profile/")
}

func TestWhoami_NotSignedIn(t *testing.T) {
	_, url := newFakeAPI(t)
	isolate(t, url)

	out, err := run(t, "", "whoami")
	require.NoError(t, err)
	require.Equal(t, "Not signed in\n", out)
}

func TestAccountLifecycle(t *testing.T) {
	api, url := newFakeAPI(t)
	isolate(t, url)

	out, err := run(t, "A@B.com\nsecret-password\n", "signup")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as a@b.com")

	signins := api.received("/signin")
	require.Len(t, signins, 1)
	require.Equal(t, "a@b.com", signins[0]["email"])
	userID, _ := signins[0]["userId"].(string)
	require.NotEmpty(t, userID)

	out, err = run(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "User:  "+userID)
	require.Contains(t, out, "Email: a@b.com")

	out, err = run(t, "", "ask", "--plain", "track", "my", "order")
	require.NoError(t, err)
	require.Contains(t, out, "Your order ships **tomorrow**.")
	require.Contains(t, out, "1. Cancel order?")
	require.Contains(t, out, "2. Track another order?")
	queries := api.received("/query")
	require.Len(t, queries, 1)
	require.Equal(t, map[string]any{"user_id": userID, "email": "a@b.com", "query": "track my order"}, queries[0])

	// The chat id from the first answer continues the conversation.
	_, err = run(t, "", "ask", "--plain", "and returns?")
	require.NoError(t, err)
	require.Equal(t, "chat-1", api.received("/query")[1]["chat_id"])

	_, err = run(t, "", "ask", "--plain", "--new", "fresh question")
	require.NoError(t, err)
	require.NotContains(t, api.received("/query")[2], "chat_id")

	out, err = run(t, "", "signout")
	require.NoError(t, err)
	require.Equal(t, "Signed out\n", out)

	out, err = run(t, "", "whoami")
	require.NoError(t, err)
	require.Equal(t, "Not signed in\n", out)

	out, err = run(t, "secret-password\n", "signin", "--email", "a@b.com")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as a@b.com")
	require.Len(t, api.received("/signin"), 2)
}

func TestSignin_WrongPassword(t *testing.T) {
	api, url := newFakeAPI(t)
	isolate(t, url)

	_, err := run(t, "a@b.com\nsecret-password\n", "signup")
	require.NoError(t, err)
	_, err = run(t, "", "signout")
	require.NoError(t, err)

	_, err = run(t, "a@b.com\nnot-the-password\n", "signin")
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
	require.Len(t, api.received("/signin"), 1)
}

func TestAsk_RequiresSession(t *testing.T) {
	api, url := newFakeAPI(t)
	isolate(t, url)

	_, err := run(t, "", "ask", "hello")
	require.ErrorIs(t, err, ErrNotSignedIn)
	require.Empty(t, api.received("/query"))
}

func TestAsk_ServerErrorFails(t *testing.T) {
	api, url := newFakeAPI(t)
	isolate(t, url)
	_, err := run(t, "a@b.com\nsecret-password\n", "signup")
	require.NoError(t, err)

	api.mu.Lock()
	api.queryStatus, api.queryBody = http.StatusInternalServerError, `{"error":"INTERNAL_ERROR"}`
	api.mu.Unlock()

	_, err = run(t, "", "ask", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestChat_RejectsUnknownStartScreen(t *testing.T) {
	_, url := newFakeAPI(t)
	isolate(t, url)

	_, err := run(t, "", "chat", "--start", "/nowhere")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown screen")
}

func TestConfigCommands(t *testing.T) {
	_, url := newFakeAPI(t)
	home := isolate(t, url)
	path := filepath.Join(home, ".novabot", "config.toml")

	out, err := run(t, "", "config", "path")
	require.NoError(t, err)
	require.Equal(t, path+"\n", out)

	out, err = run(t, "", "config", "init")
	require.NoError(t, err)
	require.Equal(t, "Wrote "+path+"\n", out)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = run(t, "", "config", "init")
	require.Error(t, err)
	_, err = run(t, "", "config", "init", "--force")
	require.NoError(t, err)

	out, err = run(t, "", "config", "show")
	require.NoError(t, err)
	require.Contains(t, out, "api.base_url    = "+url)
	require.Contains(t, out, "api.timeout     = 30s")
}
