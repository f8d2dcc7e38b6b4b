package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/feedline/internal/feed"
	"github.com/hitoshi/feedline/internal/middleware"
	"github.com/hitoshi/feedline/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// Subscribe はURLからフィードを解決し購読を作成する。
	Subscribe(ctx context.Context, userID, inputURL string) (*feed.SubscribeResult, error)
	// ListFeeds は購読中のフィード一覧を返す。
	ListFeeds(ctx context.Context, userID string) ([]*model.Feed, error)
	// Unsubscribe はフィードの購読を解除する。
	Unsubscribe(ctx context.Context, userID, feedID string) error
}

// FeedHandler はフィード購読管理のHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{service: service}
}

// subscribeRequest はフィード購読リクエストのボディ。
type subscribeRequest struct {
	URL string `json:"url"`
}

// feedResponse はフィード情報のAPIレスポンス。
type feedResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	IconURL string `json:"icon_url,omitempty"`
	URL     string `json:"url"`
}

// optionsResponse は複数のフィード候補が見つかった場合のAPIレスポンス。
// クライアントは候補から1つ選び、そのURLで再度購読リクエストを送る。
type optionsResponse struct {
	Options []model.FeedOption `json:"options"`
}

// Subscribe はフィード購読を処理する。
// POST /feeds
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	result, err := h.service.Subscribe(r.Context(), userID, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	// 複数候補: 永続化は行われていない。クライアント側の選択を待つ。
	if result.Options != nil {
		json.NewEncoder(w).Encode(optionsResponse{Options: result.Options})
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFeedResponse(result.Feed))
}

// ListFeeds は購読中のフィード一覧を返す。
// GET /feeds
func (h *FeedHandler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	feeds, err := h.service.ListFeeds(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		responses = append(responses, toFeedResponse(f))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]feedResponse{"feeds": responses})
}

// Unsubscribe はフィードの購読を解除する。フィード行と記事は残す。
// DELETE /feeds/:id
func (h *FeedHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	feedID := chi.URLParam(r, "id")

	if err := h.service.Unsubscribe(r.Context(), userID, feedID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toFeedResponse はmodel.FeedからAPIレスポンスに変換する。
func toFeedResponse(f *model.Feed) feedResponse {
	return feedResponse{
		ID:      f.ID,
		Title:   f.Title,
		IconURL: f.IconURL,
		URL:     f.URL,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorized は認証必須エラーのレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestBody はリクエストボディ解析失敗のレスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("内部エラー", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidURL, model.ErrCodeInvalidEmail, model.ErrCodeInvalidPassword:
		return http.StatusBadRequest
	case model.ErrCodeEmailTaken:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeParseFailed, model.ErrCodeNoFeedsFound:
		return http.StatusUnprocessableEntity
	case model.ErrCodeFeedNotFound, model.ErrCodeEntryNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidLogin, model.ErrCodeInvalidToken:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
