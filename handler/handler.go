// Package handler exposes the portfolio backend over API Gateway proxy
// events: the resume chat, contact delivery and the project list.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"portfolio-site/internal/domain"
	"portfolio-site/internal/portfolio"
	"portfolio-site/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10

	errorNotFound         = "NOT_FOUND"
	errorMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type UseCase interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
}

type ContactSender interface {
	Send(ctx context.Context, sub domain.ContactSubmission) error
}

type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
}

type askResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
}

type contactResponse struct {
	Status string `json:"status"`
}

type projectsResponse struct {
	Projects []domain.Project `json:"projects"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// Handler routes API Gateway proxy requests to the use cases.
type Handler struct {
	ask      UseCase
	contact  ContactSender
	projects func() []domain.Project
	logger   *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(ask UseCase, contact ContactSender, opts ...Option) (*Handler, error) {
	if ask == nil {
		return nil, errors.New("handler: ask use case must not be nil")
	}
	if contact == nil {
		return nil, errors.New("handler: contact sender must not be nil")
	}
	h := &Handler{
		ask:      ask,
		contact:  contact,
		projects: portfolio.Projects,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle is the Lambda entry point. It never returns an error: every failure
// becomes a JSON error response.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)
	log := h.logger.With("correlation_id", corrID, "method", req.HTTPMethod, "path", req.Path)

	if req.HTTPMethod == http.MethodOptions {
		return respond(http.StatusNoContent, corrID, nil), nil
	}

	var (
		allowed string
		serve   func(context.Context, *slog.Logger, string, []byte) events.APIGatewayProxyResponse
	)
	switch normalizePath(req.Path) {
	case "/chat", "/ask":
		allowed, serve = http.MethodPost, h.handleAsk
	case "/contact":
		allowed, serve = http.MethodPost, h.handleContact
	case "/projects":
		allowed, serve = http.MethodGet, h.handleProjects
	default:
		return respondJSON(http.StatusNotFound, corrID, errorResponse{Error: errorNotFound, Message: "no such route"}), nil
	}
	if req.HTTPMethod != allowed {
		resp := respondJSON(http.StatusMethodNotAllowed, corrID, errorResponse{Error: errorMethodNotAllowed, Message: "use " + allowed})
		resp.Headers["Allow"] = allowed + ", " + http.MethodOptions
		return resp, nil
	}

	body, err := requestBody(req)
	if err != nil {
		log.Warn("unreadable request body", "err", err)
		return respondJSON(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Message: "invalid request body"}), nil
	}
	return serve(ctx, log, corrID, body), nil
}

func (h *Handler) handleAsk(ctx context.Context, log *slog.Logger, corrID string, body []byte) events.APIGatewayProxyResponse {
	var in askRequest
	if err := json.Unmarshal(body, &in); err != nil {
		log.Warn("invalid ask body", "err", err)
		return respondJSON(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Message: "invalid request body"})
	}

	out, err := h.ask.Ask(ctx, usecase.AskInput{Question: in.Question, ConversationID: in.ConversationID})
	if err != nil {
		return h.failure(log, corrID, err, "Sorry, I am having trouble answering right now.")
	}
	log.Info("question answered", "conversation_id", out.ConversationID)
	return respondJSON(http.StatusOK, corrID, askResponse{Answer: out.Answer, ConversationID: out.ConversationID})
}

func (h *Handler) handleContact(ctx context.Context, log *slog.Logger, corrID string, body []byte) events.APIGatewayProxyResponse {
	var sub domain.ContactSubmission
	if err := json.Unmarshal(body, &sub); err != nil {
		log.Warn("invalid contact body", "err", err)
		return respondJSON(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Message: "invalid request body"})
	}
	if err := h.contact.Send(ctx, sub); err != nil {
		return h.failure(log, corrID, err, "Failed to send message. Please email me directly.")
	}
	log.Info("contact message sent")
	return respondJSON(http.StatusOK, corrID, contactResponse{Status: "sent"})
}

func (h *Handler) handleProjects(_ context.Context, _ *slog.Logger, corrID string, _ []byte) events.APIGatewayProxyResponse {
	return respondJSON(http.StatusOK, corrID, projectsResponse{Projects: h.projects()})
}

func (h *Handler) failure(log *slog.Logger, corrID string, err error, message string) events.APIGatewayProxyResponse {
	status, code, reason := classify(err)
	attrs := []any{"code", code, "reason", reason, "err", err}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	resp := errorResponse{Error: code, Message: message}
	if code == string(usecase.ErrorInvalidInput) {
		resp.Message = invalidInputMessage(reason)
		resp.Fields = usecase.InvalidFields(err)
	}
	return respondJSON(status, corrID, resp)
}

func classify(err error) (status int, code, reason string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal), "unexpected_error"
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorRateLimited:
		status = http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	return status, string(ucErr.Code), ucErr.Reason
}

func invalidInputMessage(reason string) string {
	switch reason {
	case "empty_question":
		return "Please enter a question."
	case "question_too_long":
		return "That question is too long."
	case "invalid_contact":
		return "Please fill in every field with a valid email address."
	}
	return "invalid request"
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		if len(req.Body) > maxBodyBytes {
			return nil, errors.New("body too large")
		}
		return []byte(req.Body), nil
	}
	if base64.StdEncoding.DecodedLen(len(req.Body)) > maxBodyBytes {
		return nil, errors.New("body too large")
	}
	return base64.StdEncoding.DecodeString(req.Body)
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// correlationID returns the caller-supplied correlation header, matched
// case-insensitively, or a fresh UUID.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

func respondJSON(status int, corrID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"encode response"}`)
	}
	return respond(status, corrID, body)
}

func respond(status int, corrID string, body []byte) events.APIGatewayProxyResponse {
	headers := map[string]string{
		correlationHeader:               corrID,
		"Access-Control-Allow-Origin":   "*",
		"Access-Control-Allow-Methods":  "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers":  "Content-Type, " + correlationHeader,
		"Access-Control-Expose-Headers": correlationHeader,
	}
	if body != nil {
		headers["Content-Type"] = "application/json"
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}
