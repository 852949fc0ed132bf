// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// プロフィール項目（DisplayName, FirstName, Image）はログインのたびに
// IdPの最新値で上書きされる。マージや履歴管理は行わない。
type User struct {
	ID          string
	DisplayName string
	FirstName   string
	Image       string
	AvatarData  []byte
	AvatarMime  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はブラウザに払い出されるログインセッションを表す。
// UserIDが空のセッションは未ログイン（ゲスト）状態を表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsAuthenticated はセッションがユーザーに紐付いているかを返す。
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != ""
}
