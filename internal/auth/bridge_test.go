package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"nova-bot/internal/chatclient"
	"nova-bot/internal/identity"
	"nova-bot/internal/route"
	"nova-bot/internal/session"
)

type handshakeCall struct {
	userID string
	email  string
}

type fakeBackend struct {
	calls []handshakeCall
	err   error
}

func (f *fakeBackend) Signin(_ context.Context, userID, email string) error {
	f.calls = append(f.calls, handshakeCall{userID, email})
	return f.err
}

type fakeProvider struct {
	calls int
	err   error
}

func (f *fakeProvider) SignOut(_ context.Context) error {
	f.calls++
	return f.err
}

type fakeNav struct {
	navigated []string
	reloaded  []string
}

func (f *fakeNav) Navigate(path string) { f.navigated = append(f.navigated, path) }
func (f *fakeNav) Reload(path string)   { f.reloaded = append(f.reloaded, path) }

func user(id, email string) identity.User {
	return identity.User{ID: id, PrimaryEmailAddress: &identity.EmailAddress{EmailAddress: email}}
}

type fixture struct {
	store    *session.MemoryStore
	backend  *fakeBackend
	provider *fakeProvider
	nav      *fakeNav
	bridge   *Bridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    session.NewMemoryStore(),
		backend:  &fakeBackend{},
		provider: &fakeProvider{},
		nav:      &fakeNav{},
	}
	b, err := NewBridge(f.store, f.backend, f.provider, f.nav, nil)
	require.NoError(t, err)
	f.bridge = b
	return f
}

func TestNewBridge_ValidatesDependencies(t *testing.T) {
	s, be, p, n := session.NewMemoryStore(), &fakeBackend{}, &fakeProvider{}, &fakeNav{}

	_, err := NewBridge(nil, be, p, n, nil)
	require.Error(t, err)
	_, err = NewBridge(s, nil, p, n, nil)
	require.Error(t, err)
	_, err = NewBridge(s, be, nil, n, nil)
	require.Error(t, err)
	_, err = NewBridge(s, be, p, nil, nil)
	require.Error(t, err)
}

func TestSignedIn_SavesHandshakesAndNavigates(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bridge.SignedIn(context.Background(), user("u1", "a@b.com")))

	sess, err := f.store.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.Session{UserID: "u1", Email: "a@b.com"}, sess)
	require.Equal(t, []handshakeCall{{"u1", "a@b.com"}}, f.backend.calls)
	require.Equal(t, []string{route.ChatHome}, f.nav.navigated)
}

func TestSignedUp_SameSequence(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bridge.SignedUp(context.Background(), identity.User{ID: "u2"}))

	sess, _ := f.store.Read(context.Background())
	require.Equal(t, session.Session{UserID: "u2"}, sess)
	require.Equal(t, []handshakeCall{{"u2", ""}}, f.backend.calls)
	require.Equal(t, []string{route.ChatHome}, f.nav.navigated)
}

func TestSignedIn_MissingID(t *testing.T) {
	f := newFixture(t)

	err := f.bridge.SignedIn(context.Background(), identity.User{})
	require.ErrorIs(t, err, ErrMissingUserID)

	sess, _ := f.store.Read(context.Background())
	require.False(t, sess.SignedIn())
	require.Empty(t, f.backend.calls)
	require.Empty(t, f.nav.navigated)
}

func TestSignedIn_HandshakeFailureStaysPut(t *testing.T) {
	f := newFixture(t)
	f.backend.err = errors.New("connection refused")

	err := f.bridge.SignedIn(context.Background(), user("u1", "a@b.com"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
	require.Len(t, f.backend.calls, 1)
	require.Empty(t, f.nav.navigated)

	// The session was written before the handshake was attempted.
	sess, _ := f.store.Read(context.Background())
	require.Equal(t, "u1", sess.UserID)
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bridge.SignedIn(context.Background(), user("u1", "a@b.com")))
	require.NoError(t, f.store.RecordChatID(context.Background(), "chat-1"))

	require.NoError(t, f.bridge.SignOut(context.Background()))

	require.Equal(t, 1, f.provider.calls)
	sess, _ := f.store.Read(context.Background())
	require.Equal(t, session.Session{}, sess)
	require.Equal(t, []string{route.SignIn}, f.nav.reloaded)
}

func TestSignOut_ProviderFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bridge.SignedIn(context.Background(), user("u1", "a@b.com")))
	f.provider.err = errors.New("provider down")

	require.Error(t, f.bridge.SignOut(context.Background()))

	sess, _ := f.store.Read(context.Background())
	require.Equal(t, "u1", sess.UserID)
	require.Empty(t, f.nav.reloaded)
}

func TestSignedIn_RealHandshakeRequest(t *testing.T) {
	var bodies []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/signin", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	router := route.NewRouter(route.SignIn)
	client := chatclient.New(chatclient.WithBaseURL(srv.URL), chatclient.WithHTTPClient(srv.Client()))
	b, err := NewBridge(store, client, &fakeProvider{}, router, nil)
	require.NoError(t, err)

	require.NoError(t, b.SignedIn(context.Background(), user("u1", "a@b.com")))

	require.Equal(t, []map[string]string{{"userId": "u1", "email": "a@b.com"}}, bodies)
	sess, _ := store.Read(context.Background())
	require.Equal(t, session.Session{UserID: "u1", Email: "a@b.com"}, sess)
	require.Equal(t, route.ChatHome, router.Current())

	require.NoError(t, b.SignOut(context.Background()))
	require.Equal(t, route.SignIn, router.Current())
	require.Equal(t, 1, router.Reloads())
}
