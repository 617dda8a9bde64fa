package chatview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmit_BlankDraftIsNoOp(t *testing.T) {
	for _, draft := range []string{"", "   ", "\t\n"} {
		m := New()
		m.SetDraft(draft)

		_, _, ok := m.Submit()
		require.False(t, ok, "draft=%q", draft)
		require.Empty(t, m.Messages())
		require.False(t, m.Awaiting())
		require.Equal(t, Token(0), m.Generation())
		require.Equal(t, draft, m.Draft())
	}
}

func TestSubmit_AppendsUserMessageAndAwaits(t *testing.T) {
	m := New()
	m.SetDraft("track my order")

	token, query, ok := m.Submit()
	require.True(t, ok)
	require.Equal(t, Token(1), token)
	require.Equal(t, "track my order", query)
	require.Equal(t, []Message{{Role: RoleUser, Text: "track my order"}}, m.Messages())
	require.True(t, m.Awaiting())
	require.Empty(t, m.Followups())
}

func TestResolve_Success(t *testing.T) {
	m := New()
	m.SetDraft("track my order")
	token, _, _ := m.Submit()

	applied := m.Resolve(token, Outcome{
		Answer:    "Your order ships tomorrow.",
		Followups: []string{"Cancel order?", "Track another order?"},
	})
	require.True(t, applied)
	require.Equal(t, []Message{
		{Role: RoleUser, Text: "track my order"},
		{Role: RoleBot, Text: "Your order ships tomorrow."},
	}, m.Messages())
	require.Equal(t, []string{"Cancel order?", "Track another order?"}, m.Followups())
	require.False(t, m.Awaiting())
	require.Empty(t, m.Draft())
	require.NoError(t, m.Err())
}

func TestResolve_FollowupsReplacedWholesale(t *testing.T) {
	m := New()
	m.SetDraft("first")
	token, _, _ := m.Submit()
	m.Resolve(token, Outcome{Answer: "a", Followups: []string{"x", "y", "z"}})
	require.Equal(t, []string{"x", "y", "z"}, m.Followups())

	m.SelectFollowup("x")
	token, _, _ = m.Submit()
	m.Resolve(token, Outcome{Answer: "b", Followups: []string{"a", "b"}})
	require.Equal(t, []string{"a", "b"}, m.Followups())

	m.SetDraft("third")
	token, _, _ = m.Submit()
	m.Resolve(token, Outcome{Answer: "c"})
	require.Empty(t, m.Followups())
}

func TestResolve_Failure(t *testing.T) {
	m := New()
	m.SetDraft("track my order")
	token, _, _ := m.Submit()

	boom := errors.New("status 500")
	require.True(t, m.Resolve(token, Outcome{Err: boom}))
	require.Equal(t, []Message{{Role: RoleUser, Text: "track my order"}}, m.Messages())
	require.Empty(t, m.Followups())
	require.False(t, m.Awaiting())
	require.Empty(t, m.Draft())
	require.ErrorIs(t, m.Err(), boom)

	m.DismissError()
	require.NoError(t, m.Err())
}

func TestResolve_StaleTokenDiscarded(t *testing.T) {
	m := New()
	m.SetDraft("one")
	first, _, _ := m.Submit()
	m.SetDraft("two")
	second, _, _ := m.Submit()

	require.False(t, m.Resolve(first, Outcome{Answer: "late answer to one"}))
	require.True(t, m.Awaiting())

	require.True(t, m.Resolve(second, Outcome{Answer: "answer to two"}))
	require.Equal(t, []Message{
		{Role: RoleUser, Text: "one"},
		{Role: RoleUser, Text: "two"},
		{Role: RoleBot, Text: "answer to two"},
	}, m.Messages())

	// A duplicate delivery of an already applied outcome is ignored too.
	require.False(t, m.Resolve(second, Outcome{Answer: "again"}))
}

func TestSetDraft_ClearsFollowupsOnlyWhenNonEmpty(t *testing.T) {
	m := New()
	m.SetDraft("q")
	token, _, _ := m.Submit()
	m.Resolve(token, Outcome{Answer: "a", Followups: []string{"f1"}})

	m.SetDraft("")
	require.Equal(t, []string{"f1"}, m.Followups())

	m.SetDraft("h")
	require.Empty(t, m.Followups())
	require.Equal(t, "h", m.Draft())
}

func TestSelectFollowup(t *testing.T) {
	m := New()
	m.SetDraft("q")
	token, _, _ := m.Submit()
	m.Resolve(token, Outcome{Answer: "a", Followups: []string{"Cancel order?", "Track another order?"}})
	gen := m.Generation()

	m.SelectFollowup("Cancel order?")
	require.Equal(t, "Cancel order?", m.Draft())
	require.Empty(t, m.Followups())
	require.False(t, m.Awaiting())
	require.Equal(t, gen, m.Generation())
}

func TestNewChat(t *testing.T) {
	m := New()
	m.SetDraft("q")
	token, _, _ := m.Submit()
	m.Resolve(token, Outcome{Answer: "a", Followups: []string{"f"}})

	m.SetDraft("half-typed question")

	m.NewChat()
	require.Empty(t, m.Messages())
	require.Empty(t, m.Followups())
	require.NoError(t, m.Err())
	require.Empty(t, m.Draft())

	_, _, ok := m.Submit()
	require.False(t, ok)
}

func TestNewChat_InvalidatesInFlightRequest(t *testing.T) {
	m := New()
	m.SetDraft("q")
	token, _, _ := m.Submit()

	m.NewChat()
	require.False(t, m.Awaiting())
	require.Empty(t, m.Draft())
	require.False(t, m.Resolve(token, Outcome{Answer: "a"}))
	require.Empty(t, m.Messages())
}

func TestMessages_ReturnsCopy(t *testing.T) {
	m := New()
	m.SetDraft("q")
	m.Submit()

	msgs := m.Messages()
	msgs[0].Text = "mutated"
	require.Equal(t, "q", m.Messages()[0].Text)
}
