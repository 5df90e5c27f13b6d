package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/groqchat/internal/api/middleware"
	"github.com/Rrens/groqchat/internal/api/response"
	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/service"
	"github.com/rs/zerolog/log"
)

// ChatHandler serves the JSON chat API
type ChatHandler struct {
	chat ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// GetSession returns the caller's current conversation
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	clientKey, ok := middleware.GetClientKey(r.Context())
	if !ok {
		response.Unauthorized(w, "missing chat session")
		return
	}

	session, err := h.chat.Current(r.Context(), clientKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to load session")
		response.InternalError(w, "failed to load session")
		return
	}

	response.OK(w, session)
}

// SendMessage submits one user message and returns the updated conversation
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	clientKey, ok := middleware.GetClientKey(r.Context())
	if !ok {
		response.Unauthorized(w, "missing chat session")
		return
	}

	var req domain.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		if fields, ok := validationMessages(err); ok {
			response.BadRequest(w, fields)
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	reply, err := h.chat.Send(r.Context(), clientKey, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Msg("failed to send message")
		response.InternalError(w, "failed to send message")
		return
	}

	response.OK(w, reply)
}

// ResetSession discards the caller's conversation
func (h *ChatHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	clientKey, ok := middleware.GetClientKey(r.Context())
	if !ok {
		response.Unauthorized(w, "missing chat session")
		return
	}

	session, err := h.chat.Reset(r.Context(), clientKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to reset session")
		response.InternalError(w, "failed to reset session")
		return
	}

	response.OK(w, session)
}
