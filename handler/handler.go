// Package handler exposes the Nova-Bot API as an API Gateway proxy handler.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"nova-bot/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	welcomeMessage    = "Welcome to the Nova-Bot Chat API!"
	maxBodyBytes      = 64 << 10
)

type QueryUseCase interface {
	Query(ctx context.Context, in usecase.QueryInput) (usecase.QueryOutput, error)
}

type SigninUseCase interface {
	Signin(ctx context.Context, in usecase.SigninInput) (usecase.SigninOutput, error)
}

type queryRequest struct {
	UserID *string `json:"user_id"`
	Email  *string `json:"email"`
	Query  string  `json:"query"`
	ChatID string  `json:"chat_id"`
}

type queryResponse struct {
	Email     string   `json:"email"`
	Answer    string   `json:"answer"`
	Followups []string `json:"followups"`
	ChatID    string   `json:"chat_id"`
}

type signinRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	query  QueryUseCase
	signin SigninUseCase
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(query QueryUseCase, signin SigninUseCase, opts ...Option) (*Handler, error) {
	if query == nil {
		return nil, errors.New("handler: query use case must not be nil")
	}
	if signin == nil {
		return nil, errors.New("handler: signin use case must not be nil")
	}
	h := &Handler{query: query, signin: signin, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle routes one API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	logger := h.logger.With("correlation_id", corrID, "method", req.HTTPMethod, "path", req.Path)

	var resp events.APIGatewayProxyResponse
	switch route := normalizePath(req.Path); {
	case req.HTTPMethod == http.MethodOptions:
		resp = events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	case route == "/" && req.HTTPMethod == http.MethodGet:
		resp = jsonResponse(http.StatusOK, messageResponse{Message: welcomeMessage})
	case route == "/signin" && req.HTTPMethod == http.MethodPost:
		resp = h.handleSignin(ctx, logger, req.Body)
	case route == "/query" && req.HTTPMethod == http.MethodPost:
		resp = h.handleQuery(ctx, logger, req.Body)
	case route == "/" || route == "/signin" || route == "/query":
		resp = jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"})
	default:
		resp = jsonResponse(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"})
	}

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[correlationHeader] = corrID
	resp.Headers["Access-Control-Allow-Origin"] = "*"
	resp.Headers["Access-Control-Allow-Methods"] = "GET, POST, OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type, " + correlationHeader
	return resp, nil
}

func (h *Handler) handleSignin(ctx context.Context, logger *slog.Logger, body string) events.APIGatewayProxyResponse {
	var in signinRequest
	if err := decodeBody(body, &in); err != nil {
		logger.Warn("invalid signin body", "error", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)})
	}
	out, err := h.signin.Signin(ctx, usecase.SigninInput{UserID: in.UserID, Email: in.Email})
	if err != nil {
		return errorToResponse(logger, err)
	}
	if out.Created {
		logger.Info("new user registered", "user_id", out.UserID)
		return jsonResponse(http.StatusCreated, messageResponse{Message: "New user registered", UserID: out.UserID})
	}
	logger.Info("user signed in", "user_id", out.UserID)
	return jsonResponse(http.StatusOK, messageResponse{Message: "User signed in successfully", UserID: out.UserID})
}

func (h *Handler) handleQuery(ctx context.Context, logger *slog.Logger, body string) events.APIGatewayProxyResponse {
	var in queryRequest
	if err := decodeBody(body, &in); err != nil {
		logger.Warn("invalid query body", "error", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)})
	}
	out, err := h.query.Query(ctx, usecase.QueryInput{
		UserID: deref(in.UserID),
		Email:  deref(in.Email),
		Query:  in.Query,
		ChatID: in.ChatID,
	})
	if err != nil {
		return errorToResponse(logger, err)
	}
	logger.Info("query answered", "chat_id", out.ChatID, "followups", len(out.Followups))
	return jsonResponse(http.StatusOK, queryResponse{
		Email:     out.Email,
		Answer:    out.Answer,
		Followups: out.Followups,
		ChatID:    out.ChatID,
	})
}

func errorToResponse(logger *slog.Logger, err error) events.APIGatewayProxyResponse {
	ucErr := usecase.AsError(err)
	status := statusForCode(ucErr.Code)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "request failed", "code", ucErr.Code, "reason", ucErr.Reason, "error", err)
	return jsonResponse(status, errorResponse{Error: string(ucErr.Code)})
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorQueryRejected:
		return http.StatusBadRequest
	case usecase.ErrorConversationLimit:
		return http.StatusConflict
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(body string, v any) error {
	if len(body) > maxBodyBytes {
		return errors.New("body too large")
	}
	return json.Unmarshal([]byte(body), v)
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       string(body),
	}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

func normalizePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
