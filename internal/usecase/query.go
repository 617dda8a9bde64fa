package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"nova-bot/internal/domain"
)

const (
	defaultMaxContext = 20
	defaultMaxQuery   = 500
	defaultMaxTurns   = 50
	statusComplete    = "complete"
	paramPinnedPrompt = "/pinned_prompt"
	paramOpenAIModel  = "/config/openai_model"
)

type ParamGetter interface {
	GetParameters(ctx context.Context, names ...string) (map[string]string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type ConversationStore interface {
	GetConversation(ctx context.Context, chatID string) (domain.ConversationMeta, bool, error)
	GetHistory(ctx context.Context, chatID string, limit int) ([]domain.Turn, error)
	SaveCompletedTurn(ctx context.Context, chatID, ownerID, query, answer string, followups []string, turns int) error
}

// QueryConfig bounds a QueryService. Zero limits take defaults.
type QueryConfig struct {
	ParamPrefix     string
	MaxContextItems int
	MaxQueryLength  int
	MaxTurns        int
}

// QueryService answers POST /query.
type QueryService struct {
	params ParamGetter
	llm    LLMClient
	state  ConversationStore
	cfg    QueryConfig

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	pinnedPrompt string
	openaiModel  string
}

type QueryInput struct {
	UserID string
	Email  string
	Query  string
	ChatID string
}

type QueryOutput struct {
	Email     string
	Answer    string
	Followups []string
	ChatID    string
}

func NewQueryService(p ParamGetter, llm LLMClient, s ConversationStore, cfg QueryConfig) (*QueryService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if cfg.ParamPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if cfg.MaxContextItems <= 0 {
		cfg.MaxContextItems = defaultMaxContext
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = defaultMaxQuery
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	return &QueryService{params: p, llm: llm, state: s, cfg: cfg}, nil
}

func (s *QueryService) Query(ctx context.Context, in QueryInput) (QueryOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	email := strings.TrimSpace(in.Email)
	if userID == "" || email == "" {
		return QueryOutput{}, fail(ErrorInvalidInput, "missing_identity", nil)
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return QueryOutput{}, fail(ErrorInvalidInput, "empty_query", nil)
	}
	if utf8.RuneCountInString(query) > s.cfg.MaxQueryLength {
		return QueryOutput{}, fail(ErrorInvalidInput, "query_too_long", nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return QueryOutput{}, fail(ErrorInternal, "ssm_load_error", err)
	}

	chatID, existingTurns, err := s.resolveChat(ctx, userID, strings.TrimSpace(in.ChatID))
	if err != nil {
		return QueryOutput{}, err
	}

	flagged, err := s.llm.Moderate(ctx, query)
	if err != nil {
		return QueryOutput{}, upstreamError("moderation", err)
	}
	if flagged {
		return QueryOutput{}, fail(ErrorQueryRejected, "moderation_flagged", nil)
	}

	var history []domain.Turn
	if existingTurns > 0 {
		history, err = s.state.GetHistory(ctx, chatID, s.cfg.MaxContextItems)
		if err != nil {
			return QueryOutput{}, fail(ErrorInternal, "dynamodb_history_error", err)
		}
	}

	raw, err := s.llm.Chat(ctx, s.openaiModel, buildPromptMessages(s.pinnedPrompt, query, history))
	if err != nil {
		return QueryOutput{}, upstreamError("openai", err)
	}
	answer, err := parseSupportAnswer(raw)
	if err != nil {
		return QueryOutput{}, fail(ErrorUpstream, "openai_malformed_response", err)
	}
	followups := normalizeFollowups(answer.Followups)

	if err := s.state.SaveCompletedTurn(ctx, chatID, userID, query, answer.Answer, followups, existingTurns+1); err != nil {
		return QueryOutput{}, fail(ErrorInternal, "dynamodb_write_error", err)
	}

	return QueryOutput{
		Email:     email,
		Answer:    answer.Answer,
		Followups: followups,
		ChatID:    chatID,
	}, nil
}

// resolveChat picks the chat to continue. A missing id, or one owned by someone else, opens a
// new chat.
func (s *QueryService) resolveChat(ctx context.Context, userID, chatID string) (string, int, error) {
	if chatID == "" {
		return newUUID(), 0, nil
	}
	meta, found, err := s.state.GetConversation(ctx, chatID)
	if err != nil {
		return "", 0, fail(ErrorInternal, "dynamodb_turn_count_error", err)
	}
	if !found {
		return chatID, 0, nil
	}
	if meta.OwnerID != "" && meta.OwnerID != userID {
		return newUUID(), 0, nil
	}
	if meta.Turns >= s.cfg.MaxTurns {
		return "", 0, fail(ErrorConversationLimit, "conversation_turn_limit", nil)
	}
	return chatID, meta.Turns, nil
}

func (s *QueryService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	pinned := s.cfg.ParamPrefix + paramPinnedPrompt
	model := s.cfg.ParamPrefix + paramOpenAIModel
	vals, err := s.params.GetParameters(ctx, pinned, model)
	if err != nil {
		return fmt.Errorf("usecase: load parameters: %w", err)
	}
	if strings.TrimSpace(vals[model]) == "" {
		return errors.New("usecase: openai model parameter is empty")
	}

	s.pinnedPrompt = vals[pinned]
	s.openaiModel = strings.TrimSpace(vals[model])
	s.cacheLoaded = true
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}
