// Package model はドメインモデルを定義する。
package model

import "time"

// Story はユーザーが投稿するストーリーを表す。
// OwnerIDとCreatedAtは作成時に確定し、以後変更されない。
type Story struct {
	ID        string
	Title     string
	Body      string
	Status    StoryStatus
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoryStatus はストーリーの公開状態を表す。
type StoryStatus string

const (
	// StoryStatusPublic は認証済みユーザー全員が閲覧できる状態。
	StoryStatusPublic StoryStatus = "public"
	// StoryStatusPrivate は所有者のみが閲覧できる状態。
	StoryStatusPrivate StoryStatus = "private"
)

// IsValid はステータス値が定義済みのものかを返す。
func (s StoryStatus) IsValid() bool {
	return s == StoryStatusPublic || s == StoryStatusPrivate
}

// StoryInput はストーリー作成・更新の入力を表す。
// リクエストボディの動的なフィールド検査は行わず、この形に固定する。
type StoryInput struct {
	Title  string
	Body   string
	Status StoryStatus
}
