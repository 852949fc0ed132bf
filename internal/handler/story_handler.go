package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storyhub/internal/middleware"
	"github.com/hitoshi/storyhub/internal/model"
	"github.com/hitoshi/storyhub/internal/story"
)

// StoryServiceInterface はストーリーハンドラーが必要とするサービスインターフェース。
type StoryServiceInterface interface {
	// ListOwn はユーザー自身のストーリー一覧を返す（公開・非公開問わず）。
	ListOwn(ctx context.Context, requesterID string) ([]*model.Story, error)
	// ListPublic は公開ストーリー一覧を返す。
	ListPublic(ctx context.Context, requesterID string) ([]*model.Story, error)
	// GetOne はストーリーを1件取得する。非公開は所有者のみ閲覧可。
	GetOne(ctx context.Context, requesterID, storyID string) (*model.Story, error)
	// Create は新しいストーリーを作成する。
	Create(ctx context.Context, requesterID string, input model.StoryInput) (*model.Story, error)
	// Update はストーリーを更新する。所有者のみ実行可。
	Update(ctx context.Context, requesterID, storyID string, input model.StoryInput) (*model.Story, error)
	// Delete はストーリーを削除する。所有者のみ実行可。
	Delete(ctx context.Context, requesterID, storyID string) error
}

// StoryRecorder はストーリー操作メトリクスの記録インターフェース。
type StoryRecorder interface {
	RecordStoryCreated()
	RecordStoryUpdated()
	RecordStoryDeleted()
}

// StoryHandler はストーリーCRUDのHTTPハンドラー。
type StoryHandler struct {
	service StoryServiceInterface
	metrics StoryRecorder
}

// NewStoryHandler はStoryHandlerを生成する。metricsはnil可。
func NewStoryHandler(service StoryServiceInterface, metrics StoryRecorder) *StoryHandler {
	return &StoryHandler{
		service: service,
		metrics: metrics,
	}
}

// storyResponse はストーリーのAPIレスポンス。
type storyResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"owner_id"`
	CanModify bool      `json:"can_modify"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// storyRequest はストーリー作成・更新リクエストのボディ。
type storyRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Status string `json:"status"`
}

// apiErrorResponse は統一エラーレスポンスのボディ。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListMine はログインユーザー自身のストーリー一覧を取得する。
// GET /api/stories
func (h *StoryHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	stories, err := h.service.ListOwn(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeStoryList(w, stories, userID)
}

// ListPublic は公開ストーリー一覧を取得する。
// 閲覧には認証が必要（所有者である必要はない）。
// GET /api/stories/public
func (h *StoryHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	stories, err := h.service.ListPublic(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeStoryList(w, stories, userID)
}

// Get はストーリーを1件取得する。非公開は所有者のみ閲覧できる。
// GET /api/stories/{storyID}
func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	storyID := chi.URLParam(r, "storyID")

	s, err := h.service.GetOne(r.Context(), userID, storyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toStoryResponse(s, userID))
}

// Create は新しいストーリーを作成する。
// POST /api/stories
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	input, ok := decodeStoryRequest(w, r)
	if !ok {
		return
	}

	s, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordStoryCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toStoryResponse(s, userID))
}

// Update はストーリーを更新する。
// PUT /api/stories/{storyID}
func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	storyID := chi.URLParam(r, "storyID")

	input, ok := decodeStoryRequest(w, r)
	if !ok {
		return
	}

	s, err := h.service.Update(r.Context(), userID, storyID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordStoryUpdated()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toStoryResponse(s, userID))
}

// Delete はストーリーを削除する。
// DELETE /api/stories/{storyID}
func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	storyID := chi.URLParam(r, "storyID")

	if err := h.service.Delete(r.Context(), userID, storyID); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordStoryDeleted()
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeStoryRequest はリクエストボディをデコードしてStoryInputに変換する。
// デコード失敗時はエラーレスポンスを書き込みfalseを返す。
func decodeStoryRequest(w http.ResponseWriter, r *http.Request) (model.StoryInput, bool) {
	var req storyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return model.StoryInput{}, false
	}
	return model.StoryInput{
		Title:  req.Title,
		Body:   req.Body,
		Status: model.StoryStatus(req.Status),
	}, true
}

// writeStoryList はストーリー一覧をJSONで書き込む。
func writeStoryList(w http.ResponseWriter, stories []*model.Story, requesterID string) {
	responses := make([]storyResponse, 0, len(stories))
	for _, s := range stories {
		responses = append(responses, toStoryResponse(s, requesterID))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// toStoryResponse はStoryをAPIレスポンスに変換する。
func toStoryResponse(s *model.Story, requesterID string) storyResponse {
	return storyResponse{
		ID:        s.ID,
		Title:     s.Title,
		Body:      s.Body,
		Status:    string(s.Status),
		OwnerID:   s.OwnerID,
		CanModify: story.CanModify(requesterID, s),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeStoryNotFound, model.ErrCodeUserNotFound, model.ErrCodeAvatarNotFound:
		return http.StatusNotFound
	case model.ErrCodeStoryForbidden:
		return http.StatusForbidden
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
