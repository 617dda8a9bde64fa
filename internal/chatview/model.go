// Package chatview holds the in-memory state of the chat screen.
//
// Model is not safe for concurrent use. It is owned by the UI event loop; network work happens
// elsewhere and reports back through Resolve.
package chatview

import (
	"slices"
	"strings"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one immutable chat entry. Text may contain Markdown.
type Message struct {
	Role Role
	Text string
}

// Token identifies one submission. Only the latest token may change the model.
type Token uint64

// Outcome is the tagged result of a query: Err != nil is the failure variant.
type Outcome struct {
	Answer    string
	Followups []string
	ChatID    string
	Err       error
}

// Failed reports whether the outcome is the failure variant.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Model is the chat view state.
type Model struct {
	messages   []Message
	draft      string
	followups  []string
	awaiting   bool
	generation Token
	err        error
}

// New returns an empty model.
func New() *Model {
	return &Model{}
}

func (m *Model) Messages() []Message {
	return slices.Clone(m.messages)
}

func (m *Model) Followups() []string {
	return slices.Clone(m.followups)
}

func (m *Model) Draft() string {
	return m.draft
}

func (m *Model) Awaiting() bool {
	return m.awaiting
}

// Err returns the failure of the latest resolved request, if it failed.
func (m *Model) Err() error {
	return m.err
}

// Generation returns the token of the latest submission.
func (m *Model) Generation() Token {
	return m.generation
}

// SetDraft records typed text. Typing anything abandons the current suggestions.
func (m *Model) SetDraft(text string) {
	m.draft = text
	if text != "" {
		m.followups = nil
	}
}

// SelectFollowup copies a suggestion into the draft without submitting it.
func (m *Model) SelectFollowup(suggestion string) {
	m.draft = suggestion
	m.followups = nil
}

// NewChat drops the transcript, the draft, the suggestions and any visible error.
// A request still in flight is invalidated so its answer cannot land in the new chat.
func (m *Model) NewChat() {
	m.messages = nil
	m.draft = ""
	m.followups = nil
	m.err = nil
	if m.awaiting {
		m.generation++
		m.awaiting = false
	}
}

// Submit starts a request for the current draft. A blank draft is a no-op and returns false.
// The returned query is the untrimmed draft, as typed.
func (m *Model) Submit() (Token, string, bool) {
	if strings.TrimSpace(m.draft) == "" {
		return 0, "", false
	}
	query := m.draft
	m.messages = append(m.messages, Message{Role: RoleUser, Text: query})
	m.followups = nil
	m.awaiting = true
	m.err = nil
	m.generation++
	return m.generation, query, true
}

// Resolve applies the outcome of the request identified by token. Outcomes of superseded
// requests are discarded and Resolve returns false.
func (m *Model) Resolve(token Token, out Outcome) bool {
	if token != m.generation || !m.awaiting {
		return false
	}
	m.awaiting = false
	m.draft = ""
	if out.Failed() {
		m.err = out.Err
		return true
	}
	m.messages = append(m.messages, Message{Role: RoleBot, Text: out.Answer})
	m.followups = slices.Clone(out.Followups)
	return true
}

// DismissError hides the visible error.
func (m *Model) DismissError() {
	m.err = nil
}
