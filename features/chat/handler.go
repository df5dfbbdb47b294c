package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"reactor/backend/internal/embed"
	"reactor/backend/internal/llm"
	"reactor/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "query is required", http.StatusBadRequest)
		return
	}

	answer, err := h.service.AnswerQuery(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, embed.ErrUnavailable):
			h.writeError(r.Context(), w, "EMBEDDER_UNAVAILABLE", "Embedding service unavailable", http.StatusServiceUnavailable)
		case errors.Is(err, llm.ErrUnavailable):
			h.writeError(r.Context(), w, "LLM_UNAVAILABLE", "LLM runtime unavailable", http.StatusServiceUnavailable)
		default:
			slog.ErrorContext(r.Context(), "chat query failed", "error", err)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": answer}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	models, err := h.service.Models(r.Context())
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			h.writeError(r.Context(), w, "LLM_UNAVAILABLE", "LLM runtime unavailable", http.StatusServiceUnavailable)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if models == nil {
		models = []llm.ModelInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": models,
		"meta": map[string]int{"count": len(models)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
