// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storyhub/internal/model"
)

const sessionCookieName = "session_id"

// SessionCookieName はセッショントークンを保持するCookieの名前を返す。
func SessionCookieName() string {
	return sessionCookieName
}

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// GuardConfig はアクセスガードの設定。
type GuardConfig struct {
	// LoginPath は未認証リクエストのリダイレクト先（ログイン入口）。
	LoginPath string
	// DashboardPath は認証済みリクエストのリダイレクト先（ダッシュボード）。
	DashboardPath string
}

// NewRequireAuthMiddleware は認証済みセッションを要求するミドルウェアを返す。
// Cookieのトークンを永続ストアで解決し、有効かつユーザー紐付け済みの場合のみ
// ユーザーIDをコンテキストに注入してハンドラーへ進める。
// それ以外はハンドラーを実行せず、ログイン入口へ303リダイレクトする。
// データへの副作用は持たない。
func NewRequireAuthMiddleware(sessionFinder SessionFinder, config GuardConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := resolveSession(sessionFinder, r)
			if !ok {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !session.IsAuthenticated() {
				http.Redirect(w, r, config.LoginPath, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAnonymousMiddleware は未認証状態を要求するミドルウェアを返す。
// 有効な認証済みセッションを持つリクエストはハンドラーを実行せず、
// ダッシュボードへ303リダイレクトする。
func NewRequireAnonymousMiddleware(sessionFinder SessionFinder, config GuardConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := resolveSession(sessionFinder, r)
			if !ok {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if session.IsAuthenticated() {
				http.Redirect(w, r, config.DashboardPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveSession はCookieのトークンをセッションに解決する。
// トークンなし・期限切れ・未登録はnilセッション（匿名）として返す。
// ストア障害時のみ ok=false を返す。
func resolveSession(sessionFinder SessionFinder, r *http.Request) (*model.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, true
	}

	session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return session, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// RequireAuthミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
