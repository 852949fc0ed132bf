package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/storyhub/internal/middleware"
	"github.com/hitoshi/storyhub/internal/model"
)

// AvatarServiceInterface はユーザーハンドラーが必要とするアバターサービスインターフェース。
type AvatarServiceInterface interface {
	// GetAvatar は保存済みのアバター画像データとメディアタイプを返す。
	GetAvatar(ctx context.Context, userID string) ([]byte, string, error)
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	avatarService AvatarServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(avatarService AvatarServiceInterface) *UserHandler {
	return &UserHandler{
		avatarService: avatarService,
	}
}

// GetAvatar はログインユーザーのアバター画像を返す。
// 画像未保存の場合は404を返す。
// GET /api/users/me/avatar
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	data, mimeType, err := h.avatarService.GetAvatar(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if len(data) == 0 {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewAvatarNotFoundError())
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
