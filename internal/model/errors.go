// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, story, user, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeStoryNotFound      = "STORY_NOT_FOUND"
	ErrCodeStoryForbidden     = "STORY_FORBIDDEN"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeAvatarNotFound     = "AVATAR_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
)

// NewStoryNotFoundError はストーリー未検出エラーを生成する。
// 2回目のdeleteもこのエラーになる（冪等な成功にはしない）。
func NewStoryNotFoundError(storyID string) *APIError {
	return &APIError{
		Code:     ErrCodeStoryNotFound,
		Message:  fmt.Sprintf("指定されたストーリーが見つかりません: %s", storyID),
		Category: "story",
		Action:   "ストーリーIDを確認してください。",
	}
}

// NewStoryForbiddenError は所有権・公開範囲違反エラーを生成する。
// 認証済みだが当該リソースへの権限がない場合に使用する。
func NewStoryForbiddenError(storyID string) *APIError {
	return &APIError{
		Code:     ErrCodeStoryForbidden,
		Message:  fmt.Sprintf("このストーリーへのアクセス権限がありません: %s", storyID),
		Category: "story",
		Action:   "自分が所有するストーリーか、公開ストーリーのみ操作できます。",
	}
}

// NewValidationError は入力不正エラーを生成する。
// 永続化を試みる前に返され、部分的なレコードは作成されない。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "タイトルと本文を入力し、公開状態にはpublicまたはprivateを指定してください。",
	}
}

// NewStorageUnavailableError はストア到達不能エラーを生成する。
// コア内では再試行せず、呼び出し側に一時障害として伝播する。
func NewStorageUnavailableError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  fmt.Sprintf("データストアにアクセスできません: %v", err),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAvatarNotFoundError はアバター画像が未保存の場合のエラーを生成する。
// ユーザー自体は存在するため、USER_NOT_FOUNDとは区別する。
func NewAvatarNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAvatarNotFound,
		Message:  "アバター画像が保存されていません。",
		Category: "user",
		Action:   "再度ログインするとプロフィール画像が取り込まれます。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}
