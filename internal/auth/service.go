// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storyhub/internal/model"
	"github.com/hitoshi/storyhub/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	DisplayName    string
	FirstName      string
	Image          string
	Provider       string // "google", "github" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// AvatarRefresher はログイン時のアバター画像更新インターフェース。
type AvatarRefresher interface {
	RefreshAvatar(ctx context.Context, userID, imageURL string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// セッション状態はプロセス内に保持せず、常にsessionRepo経由で解決する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	avatars     AvatarRefresher
	config      ServiceConfig
}

// NewService はServiceを生成する。
// avatarsはnil可（アバター更新をスキップする）。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	avatars AvatarRefresher,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		avatars:     avatars,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// StartSession はユーザー未紐付けのゲストセッションを発行し永続化する。
// 有効なトークンを持たないリクエストに対してのみ呼ばれる。
func (s *Service) StartSession(ctx context.Context) (*model.Session, error) {
	return s.createSession(ctx, "")
}

// HandleCallback はOAuthコールバックを処理し、認証済みセッションを返す。
// 認可コードをユーザー情報に交換し、FindOrCreateでユーザーを確定した上で、
// sessionIDのゲストセッションにユーザーを紐付ける。sessionIDが空または
// 失効している場合は新しい認証済みセッションを発行する。
// ストア障害時はエラーを返し、ユーザー作成もセッション紐付けも行われない。
func (s *Service) HandleCallback(ctx context.Context, code, sessionID string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.FindOrCreate(ctx, userInfo)
	if err != nil {
		return nil, err
	}

	// アバター画像の更新。失敗してもログインは継続する。
	if s.avatars != nil && user.Image != "" {
		if err := s.avatars.RefreshAvatar(ctx, user.ID, user.Image); err != nil {
			slog.Warn("failed to refresh avatar",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	// 既存のゲストセッションがあれば紐付け、なければ新規発行
	session, err := s.bindOrCreateSession(ctx, sessionID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	return session, nil
}

// FindOrCreate は外部IDに対応するユーザーを検索または作成して返す。
// 既存ユーザーの場合はプロフィール項目をIdPの最新値で上書きする。
// 新規ユーザーの場合はusersレコードとidentitiesレコードを同一トランザクションで作成する。
// 書き込みは返却前に永続化される（呼び出し側はread-after-writeに依存できる）。
func (s *Service) FindOrCreate(ctx context.Context, userInfo *OAuthUserInfo) (*model.User, error) {
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if identity != nil {
		// 既存ユーザー: プロフィールを最新値で上書き
		if err := s.userRepo.UpdateProfile(ctx, identity.UserID,
			userInfo.DisplayName, userInfo.FirstName, userInfo.Image); err != nil {
			return nil, fmt.Errorf("failed to update user profile: %w", err)
		}

		user, err := s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, model.NewUserNotFoundError()
		}

		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
		return user, nil
	}

	// 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
	now := time.Now()
	newUser := &model.User{
		ID:          uuid.New().String(),
		DisplayName: userInfo.DisplayName,
		FirstName:   userInfo.FirstName,
		Image:       userInfo.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("provider", userInfo.Provider),
	)
	return newUser, nil
}

// Resolve はセッショントークンを現在のユーザーに解決する。
// セッションが存在しない、期限切れ、またはユーザー未紐付けの場合は
// (nil, nil) を返す（呼び出し側は匿名リクエストとして扱う）。
// 新しいトークンの自動発行は行わない。
func (s *Service) Resolve(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if !session.IsAuthenticated() {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Terminate はセッションを破棄する。トークンが既に存在しなくてもエラーにしない。
func (s *Service) Terminate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("session terminated", slog.String("session_id", sessionID))
	return nil
}

// bindOrCreateSession は既存セッションへの紐付けを試み、
// 失敗した場合は認証済みセッションを新規発行する。
func (s *Service) bindOrCreateSession(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	lifetime := time.Duration(s.config.SessionMaxAge) * time.Second

	if sessionID != "" {
		session, err := s.sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			expiresAt := time.Now().Add(lifetime)
			if err := s.sessionRepo.Bind(ctx, session.ID, userID, expiresAt); err != nil {
				return nil, err
			}
			session.UserID = userID
			session.ExpiresAt = expiresAt
			return session, nil
		}
	}

	return s.createSession(ctx, userID)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
