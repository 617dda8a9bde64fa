package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"nova-bot/internal/domain"
)

type supportAnswer struct {
	Answer    string   `json:"answer"`
	Followups []string `json:"followups"`
}

func buildPromptMessages(pinnedPrompt, query string, history []domain.Turn) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: "system", Content: buildPolicyPrompt()},
	}
	if p := strings.TrimSpace(pinnedPrompt); p != "" {
		messages = append(messages, domain.ChatMessage{Role: "system", Content: p})
	}
	for _, t := range history {
		messages = append(messages, historyToPromptMessages(t)...)
	}
	return append(messages, domain.ChatMessage{Role: "user", Content: query})
}

func buildPolicyPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are Nova-Bot, a customer support assistant.",
		"",
		"Task:",
		"Answer the customer's current question using the product knowledge provided in this request",
		"and the completed prior conversation turns.",
		"",
		"Behavior Rules:",
		"1) Answer only the current question.",
		"2) Be polite, concise and action-oriented. Markdown is allowed.",
		"3) Ask for the details you need (order number, name, preferred time) when they are missing.",
		"4) If the information is unavailable, say so and offer to connect the customer with the care team.",
		"",
		"Output Contract:",
		"Return JSON only with keys answer (string) and followups (array of strings).",
		"followups holds exactly three short questions the customer might ask you next,",
		"written from the customer's point of view.",
	}, "\n")
}

func historyToPromptMessages(t domain.Turn) []domain.ChatMessage {
	if t.Status != statusComplete {
		return nil
	}
	query := strings.TrimSpace(t.Query)
	answer := strings.TrimSpace(t.Answer)
	if query == "" || answer == "" {
		return nil
	}
	return []domain.ChatMessage{
		{Role: "user", Content: query},
		{Role: "assistant", Content: answer},
	}
}

func parseSupportAnswer(raw string) (supportAnswer, error) {
	var out supportAnswer
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return supportAnswer{}, fmt.Errorf("usecase: decode support answer: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return supportAnswer{}, errors.New("usecase: decode support answer: multiple JSON values")
		}
		return supportAnswer{}, fmt.Errorf("usecase: decode support answer trailing data: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return supportAnswer{}, errors.New("usecase: support answer is empty")
	}
	return out, nil
}
