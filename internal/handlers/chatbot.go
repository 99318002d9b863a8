package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/clinova/medbook/internal/services"
)

type ChatbotHandler struct {
	chatbotService *services.ChatbotService
}

func NewChatbotHandler(chatbotService *services.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{chatbotService: chatbotService}
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// Message answers one chat message
func (h *ChatbotHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required", nil)
		return
	}

	reply := h.chatbotService.Message(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, reply)
}

// History returns the stored conversation of a session
func (h *ChatbotHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.chatbotService.History(r.Context(), sessionID))
}

// Reset clears a session's conversation
func (h *ChatbotHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	h.chatbotService.Reset(r.Context(), req.SessionID)
	w.WriteHeader(http.StatusNoContent)
}
