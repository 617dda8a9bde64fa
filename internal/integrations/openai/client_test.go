package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nova-bot/internal/domain"
)

type fakeGetter struct {
	val   string
	err   error
	calls int
	name  string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.calls++
	f.name = name
	return f.val, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeGetter{val: `{"token":"sk-test"}`},
		"/nova-bot",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestEndpoint(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/moderations"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/moderations"},
		{"http://localhost:8080", "http://localhost:8080/v1/moderations"},
		{"", "https://api.openai.com/v1/moderations"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, endpoint(tc.base, "/moderations"), "base=%q", tc.base)
	}
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(nil, "/nova-bot")
	require.ErrorContains(t, err, "nil")

	_, err = NewClient(&fakeGetter{}, " / ")
	require.ErrorContains(t, err, "prefix")

	c, err := NewClient(&fakeGetter{}, "/nova-bot/")
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
	require.Equal(t, "/nova-bot", c.paramPrefix)
}

func TestResolveAPIKey_FetchedOnce(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`}
	c, err := NewClient(g, "/nova-bot")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		key, err := c.resolveAPIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "sk-from-ssm", key)
	}
	require.Equal(t, 1, g.calls)
	require.Equal(t, "/nova-bot/open-ai-token", g.name)
}

func TestResolveAPIKey_WithAPIKeySkipsSSM(t *testing.T) {
	g := &fakeGetter{err: errors.New("no ssm locally")}
	c, err := NewClient(g, "/nova-bot", WithAPIKey("sk-local"))
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-local", key)
	require.Zero(t, g.calls)
}

func TestFetchAPIKey(t *testing.T) {
	cases := []struct {
		name    string
		getter  Getter
		want    string
		wantErr string
	}{
		{"json token", &fakeGetter{val: `{"token":"sk-json"}`}, "sk-json", ""},
		{"missing field", &fakeGetter{val: `{"other":"v"}`}, "", "API token is empty"},
		{"malformed", &fakeGetter{val: `{"broken`}, "", "unmarshal"},
		{"getter error", &fakeGetter{err: errors.New("ssm unavailable")}, "", "ssm unavailable"},
		{"nil getter", nil, "", "nil"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := fetchAPIKeyFromParamStore(context.Background(), tc.getter, "/nova-bot/open-ai-token")
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, key)
		})
	}
}

func TestChat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"name":"support_answer"`)
		require.Contains(t, string(body), `"required":["answer","followups"]`)
		require.NotContains(t, string(body), `"temperature"`)
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"answer\":\"hi\",\"followups\":[]}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Chat(context.Background(), "gpt-mock", []domain.ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, `{"answer":"hi","followups":[]}`, out)
}

func TestChat_Temperature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), `"temperature":0.2`)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	WithTemperature(0.2)(c)
	_, err := c.Chat(context.Background(), "gpt-mock", nil)
	require.NoError(t, err)
}

func TestChat_Failures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		status  int
	}{
		{"bad request", respond(400, `{"error":"bad request"}`), "unexpected status 400", 400},
		{"rate limited", respond(429, `{"error":"slow down"}`), "429", 429},
		{"server error", respond(500, `{}`), "500", 500},
		{"invalid json", respond(200, `not-json`), "decode response", 0},
		{"no choices", respond(200, `{"choices":[]}`), "no choices", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv).Chat(context.Background(), "gpt-mock", nil)
			require.ErrorContains(t, err, tc.want)
			var statusErr *HTTPStatusError
			if tc.status != 0 {
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, tc.status, statusErr.HTTPStatusCode())
			}
		})
	}
}

func TestChat_EmptyModel(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":"sk-test"}`}, "/nova-bot")
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "", nil)
	require.ErrorContains(t, err, "model")
}

func TestChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Chat(context.Background(), "gpt-mock", nil)
	require.Error(t, err)
}

func TestModerate(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		flagged bool
		wantErr string
	}{
		{"not flagged", respond(200, `{"results":[{"flagged":false}]}`), false, ""},
		{"flagged", respond(200, `{"results":[{"flagged":true}]}`), true, ""},
		{"rate limited", respond(429, `{}`), false, "429"},
		{"malformed", respond(200, `not-json`), false, "decode moderation response"},
		{"empty results", respond(200, `{"results":[]}`), false, "no results"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			flagged, err := newTestClient(t, srv).Moderate(context.Background(), "where is my order")
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.flagged, flagged)
		})
	}
}

func TestModerate_NetworkError(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":"sk-test"}`}, "/nova-bot",
		WithBaseURL("http://127.0.0.1:1"),
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.Moderate(context.Background(), "hello")
	require.ErrorContains(t, err, "request failed")
}
