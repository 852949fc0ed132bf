// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/storyhub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はプロフィール項目（display_name, first_name, image）を
	// IdPの最新値で上書きする。他の項目は変更しない。
	UpdateProfile(ctx context.Context, id, displayName, firstName, image string) error

	// UpdateAvatar はユーザーのアバター画像データを更新する。
	UpdateAvatar(ctx context.Context, id string, avatarData []byte, avatarMime string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッションはプロセス内メモリに保持せず、常に永続ストア経由で解決する。
type SessionRepository interface {
	// Create はセッションを作成する。UserIDが空の場合はゲストセッションとして保存する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Bind はセッションにユーザーを紐付け、有効期限を延長する。
	// 単一行のUPDATEであり、途中状態が観測されることはない。
	Bind(ctx context.Context, id, userID string, expiresAt time.Time) error
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は有効期限を過ぎたセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// StoryRepository はストーリーデータの永続化インターフェース。
type StoryRepository interface {
	// FindByID は指定IDのストーリーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Story, error)

	// ListByOwner は所有者のストーリー一覧をcreated_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Story, error)

	// ListPublic は公開ストーリー一覧をcreated_at降順で返す。
	ListPublic(ctx context.Context) ([]*model.Story, error)

	// Create はストーリーを作成する。
	Create(ctx context.Context, story *model.Story) error

	// Update はtitle, body, status, updated_atを上書きする。
	// owner_idとcreated_atは変更しない。
	Update(ctx context.Context, story *model.Story) error

	// DeleteByID は指定IDのストーリーを削除する。
	// 削除した場合はtrue、該当行がなかった場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)
}
