// Package profile はユーザープロフィール画像の取得・保存を提供する。
package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/storyhub/internal/model"
	"github.com/hitoshi/storyhub/internal/repository"
)

// defaultAvatarMaxSize はアバター画像の最大サイズ（2MB）。
const defaultAvatarMaxSize = 2 * 1024 * 1024

// defaultAvatarTimeout はアバター取得のタイムアウト。
const defaultAvatarTimeout = 5 * time.Second

// SSRFValidator はアバター取得前のURL検証インターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// AvatarService はIdPから通知されたプロフィール画像URLを取得し、
// ユーザーレコードに保存する。取得失敗はログイン失敗にしない。
type AvatarService struct {
	userRepo  repository.UserRepository
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

// NewAvatarService はAvatarServiceを生成する。
// timeoutまたはmaxSizeがゼロ値の場合はデフォルトを使用する。
func NewAvatarService(userRepo repository.UserRepository, ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *AvatarService {
	if timeout <= 0 {
		timeout = defaultAvatarTimeout
	}
	if maxSize <= 0 {
		maxSize = defaultAvatarMaxSize
	}
	return &AvatarService{
		userRepo:  userRepo,
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// RefreshAvatar は画像URLからアバターを取得してユーザーに保存する。
// URLが危険または画像として取得できない場合はエラーを返し、既存データは変更しない。
func (s *AvatarService) RefreshAvatar(ctx context.Context, userID, imageURL string) error {
	data, mimeType, err := s.fetch(ctx, imageURL)
	if err != nil {
		return err
	}
	if data == nil {
		// 画像が取得できなかった。既存のアバターを保持する。
		return nil
	}

	if err := s.userRepo.UpdateAvatar(ctx, userID, data, mimeType); err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}
	return nil
}

// GetAvatar は保存済みのアバター画像データとメディアタイプを返す。
// ユーザーが存在しない場合はUserNotFoundエラー、アバター未保存の場合はnilデータを返す。
func (s *AvatarService) GetAvatar(ctx context.Context, userID string) ([]byte, string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewUserNotFoundError()
	}
	return user.AvatarData, user.AvatarMime, nil
}

// fetch は画像URLからアバターデータを取得する。
// 2xx以外のステータス、サイズ超過、画像以外のContent-Typeはnilデータで返す。
func (s *AvatarService) fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	if imageURL == "" {
		return nil, "", nil
	}

	// SSRF検証
	if s.ssrfGuard != nil {
		if err := s.ssrfGuard.ValidateURL(imageURL); err != nil {
			return nil, "", fmt.Errorf("avatar URL blocked: %w", err)
		}
	}

	client := s.httpClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create avatar request: %w", err)
	}
	req.Header.Set("User-Agent", "Storyhub/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("avatar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("avatar fetch: unexpected status", "url", imageURL, "status", resp.StatusCode)
		return nil, "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read avatar response: %w", err)
	}
	if int64(len(body)) > s.maxSize {
		slog.Warn("avatar fetch: size exceeded", "url", imageURL, "size", len(body))
		return nil, "", nil
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !isImageMime(mimeType) {
		slog.Warn("avatar fetch: non-image content type", "url", imageURL, "contentType", mimeType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// httpClient はSSRF防止付きHTTPクライアントを返す。
// ssrfGuardが未設定の場合は素のタイムアウト付きクライアントを使う。
func (s *AvatarService) httpClient() *http.Client {
	if s.ssrfGuard != nil {
		return s.ssrfGuard.NewSafeClient(s.timeout, s.maxSize)
	}
	return &http.Client{Timeout: s.timeout}
}

// extractMimeType はContent-Typeヘッダーからメディアタイプ部分を取り出す。
func extractMimeType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}

// isImageMime はメディアタイプが画像かを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
