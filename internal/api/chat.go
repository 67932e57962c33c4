package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/studyfork/bookchat/internal/rag"
)

// Request body limits. Counts are in characters, not bytes, so multibyte
// questions are not penalized.
const (
	maxMessageChars      = 2000
	minSelectedTextChars = 10
	maxSelectedTextChars = 500
	maxBodyBytes         = 1 << 20
)

// chatService answers one query. Implemented by rag.Pipeline.
type chatService interface {
	Ask(ctx context.Context, q rag.Query) (*rag.Response, error)
}

// chatRequest is the body of POST /api/v1/chat.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// contextChatRequest is the body of POST /api/v1/chat/context.
type contextChatRequest struct {
	Message      string `json:"message"`
	SelectedText string `json:"selected_text"`
	ChapterSlug  string `json:"chapter_slug,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

type chatHandler struct {
	service    chatService
	trustProxy bool
	logger     *slog.Logger
}

// send handles POST /api/v1/chat: a plain question against the whole book.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if code, msg := validateMessage(req.Message); code != "" {
		writeError(w, http.StatusBadRequest, code, msg, h.logger)
		return
	}

	sessionID, ok := parseSessionID(w, req.SessionID, h.logger)
	if !ok {
		return
	}

	h.answer(w, r, rag.Query{
		Message:    req.Message,
		SessionID:  sessionID,
		ClientHash: hashClient(clientIP(r, h.trustProxy)),
	})
}

// sendWithContext handles POST /api/v1/chat/context: a question about a
// passage the student highlighted.
func (h *chatHandler) sendWithContext(w http.ResponseWriter, r *http.Request) {
	var req contextChatRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if code, msg := validateMessage(req.Message); code != "" {
		writeError(w, http.StatusBadRequest, code, msg, h.logger)
		return
	}
	if code, msg := validateSelectedText(req.SelectedText); code != "" {
		writeError(w, http.StatusBadRequest, code, msg, h.logger)
		return
	}

	sessionID, ok := parseSessionID(w, req.SessionID, h.logger)
	if !ok {
		return
	}

	h.answer(w, r, rag.Query{
		Message:      req.Message,
		SelectedText: req.SelectedText,
		ChapterSlug:  req.ChapterSlug,
		SessionID:    sessionID,
		ClientHash:   hashClient(clientIP(r, h.trustProxy)),
	})
}

func (h *chatHandler) answer(w http.ResponseWriter, r *http.Request, q rag.Query) {
	resp, err := h.service.Ask(r.Context(), q)
	if err != nil {
		if errors.Is(err, rag.ErrUpstreamUnavailable) {
			h.logger.Error("upstream unavailable", "error", err)
			writeError(w, http.StatusServiceUnavailable, CodeServiceUnavailable,
				"a required upstream service is unavailable", h.logger)
			return
		}
		h.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError,
			"internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeBody parses the JSON request body into dst, writing the error
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest,
			fmt.Sprintf("invalid request body: %v", err), logger)
		return false
	}
	return true
}

func validateMessage(message string) (code, msg string) {
	if message == "" {
		return CodeInvalidRequest, "message is required"
	}
	if utf8.RuneCountInString(message) > maxMessageChars {
		return CodeMessageTooLong,
			fmt.Sprintf("message exceeds %d characters", maxMessageChars)
	}
	return "", ""
}

func validateSelectedText(text string) (code, msg string) {
	n := utf8.RuneCountInString(text)
	if n < minSelectedTextChars {
		return CodeInvalidRequest,
			fmt.Sprintf("selected_text must be at least %d characters", minSelectedTextChars)
	}
	if n > maxSelectedTextChars {
		return CodeSelectedTextTooLong,
			fmt.Sprintf("selected_text exceeds %d characters", maxSelectedTextChars)
	}
	return "", ""
}

// parseSessionID validates an optional session_id field. Absent means a
// new session; present but malformed is a client error.
func parseSessionID(w http.ResponseWriter, raw string, logger *slog.Logger) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest,
			"session_id must be a valid UUID", logger)
		return uuid.Nil, false
	}
	return id, true
}
