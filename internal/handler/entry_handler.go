package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/feedline/internal/middleware"
	"github.com/hitoshi/feedline/internal/model"
)

// EntryServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type EntryServiceInterface interface {
	// ListUnread は未読記事を新しい順で返す。
	ListUnread(ctx context.Context, userID string, limit int) ([]model.EntryWithFeed, error)
	// MarkRead は記事を既読にする。
	MarkRead(ctx context.Context, userID, entryID string) error
	// MarkUnread は記事を未読に戻す。
	MarkUnread(ctx context.Context, userID, entryID string) error
	// MarkManyRead は複数記事を一括で既読にする。
	MarkManyRead(ctx context.Context, userID string, entryIDs []string) error
}

// EntryHandler は記事一覧・既読管理のHTTPハンドラー。
type EntryHandler struct {
	service EntryServiceInterface
}

// NewEntryHandler はEntryHandlerを生成する。
func NewEntryHandler(service EntryServiceInterface) *EntryHandler {
	return &EntryHandler{service: service}
}

// entryFeedResponse は記事に埋め込むフィード表示情報。
type entryFeedResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	IconURL string `json:"icon_url,omitempty"`
}

// entryResponse は記事のAPIレスポンス。
type entryResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	URL       string            `json:"url"`
	Author    string            `json:"author,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Published time.Time         `json:"published"`
	Feed      entryFeedResponse `json:"feed"`
}

// markManyReadRequest は一括既読リクエストのボディ。
type markManyReadRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

// ListUnread は未読記事の一覧を返す。
// GET /entries
func (h *EntryHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitは正の整数で指定してください。",
				Category: "validation",
				Action:   "limitパラメータを確認してください。",
			})
			return
		}
		limit = parsed
	}

	entries, err := h.service.ListUnread(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, toEntryResponse(e))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]entryResponse{"entries": responses})
}

// MarkRead は記事を既読にする。
// POST /entries/:id/read
func (h *EntryHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	entryID := chi.URLParam(r, "id")

	if err := h.service.MarkRead(r.Context(), userID, entryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkUnread は記事を未読に戻す。
// DELETE /entries/:id/read
func (h *EntryHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	entryID := chi.URLParam(r, "id")

	if err := h.service.MarkUnread(r.Context(), userID, entryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkManyRead は複数記事を一括で既読にする。
// POST /entries/read
func (h *EntryHandler) MarkManyRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req markManyReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.MarkManyRead(r.Context(), userID, req.EntryIDs); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toEntryResponse はmodel.EntryWithFeedからAPIレスポンスに変換する。
func toEntryResponse(e model.EntryWithFeed) entryResponse {
	return entryResponse{
		ID:        e.Entry.ID,
		Title:     e.Entry.Title,
		URL:       e.Entry.URL,
		Author:    e.Entry.Author,
		Summary:   e.Entry.Summary,
		Published: e.Entry.Published,
		Feed: entryFeedResponse{
			ID:      e.Entry.FeedID,
			Title:   e.FeedTitle,
			IconURL: e.FeedIconURL,
		},
	}
}
