// Package story はストーリーCRUDと所有権制御のドメインロジックを提供する。
package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storyhub/internal/model"
	"github.com/hitoshi/storyhub/internal/repository"
)

// Sanitizer はストーリー本文のサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Service はストーリー管理のサービス層。
// すべての操作は解決済みのrequesterIDを前提とする（認証はミドルウェアが保証する）。
type Service struct {
	storyRepo repository.StoryRepository
	sanitizer Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerはnil可（本文をそのまま保存する）。
func NewService(storyRepo repository.StoryRepository, sanitizer Sanitizer) *Service {
	return &Service{
		storyRepo: storyRepo,
		sanitizer: sanitizer,
	}
}

// ListOwn はrequesterが所有するストーリーをcreated_at降順で返す。
// 1件もない場合は空スライスを返す。
func (s *Service) ListOwn(ctx context.Context, requesterID string) ([]*model.Story, error) {
	stories, err := s.storyRepo.ListByOwner(ctx, requesterID)
	if err != nil {
		return nil, model.NewStorageUnavailableError(err)
	}
	return stories, nil
}

// ListPublic は公開ストーリーをcreated_at降順で返す。
// requesterは認証済みであればよく、所有者である必要はない。
func (s *Service) ListPublic(ctx context.Context, requesterID string) ([]*model.Story, error) {
	stories, err := s.storyRepo.ListPublic(ctx)
	if err != nil {
		return nil, model.NewStorageUnavailableError(err)
	}
	return stories, nil
}

// GetOne は指定IDのストーリーを取得する。
// 存在しない場合はSTORY_NOT_FOUND、非公開かつ所有者以外の場合はSTORY_FORBIDDENを返す。
func (s *Service) GetOne(ctx context.Context, requesterID, storyID string) (*model.Story, error) {
	story, err := s.storyRepo.FindByID(ctx, storyID)
	if err != nil {
		return nil, model.NewStorageUnavailableError(err)
	}
	if story == nil {
		return nil, model.NewStoryNotFoundError(storyID)
	}
	if !CanView(requesterID, story) {
		return nil, model.NewStoryForbiddenError(storyID)
	}
	return story, nil
}

// Create は新しいストーリーを作成する。
// 入力検証は永続化の前に行い、不正な場合はレコードを一切作成しない。
func (s *Service) Create(ctx context.Context, requesterID string, input model.StoryInput) (*model.Story, error) {
	input, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	story := &model.Story{
		ID:        uuid.New().String(),
		Title:     input.Title,
		Body:      input.Body,
		Status:    input.Status,
		OwnerID:   requesterID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, model.NewStorageUnavailableError(err)
	}
	return story, nil
}

// Update は所有者によるストーリーの上書き更新を行う。
// OwnerIDとCreatedAtはこの操作で変更されない。
func (s *Service) Update(ctx context.Context, requesterID, storyID string, input model.StoryInput) (*model.Story, error) {
	input, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	story, err := s.storyRepo.FindByID(ctx, storyID)
	if err != nil {
		return nil, model.NewStorageUnavailableError(err)
	}
	if story == nil {
		return nil, model.NewStoryNotFoundError(storyID)
	}
	if !CanModify(requesterID, story) {
		return nil, model.NewStoryForbiddenError(storyID)
	}

	story.Title = input.Title
	story.Body = input.Body
	story.Status = input.Status
	story.UpdatedAt = time.Now()

	if err := s.storyRepo.Update(ctx, story); err != nil {
		return nil, model.NewStorageUnavailableError(err)
	}
	return story, nil
}

// Delete は所有者によるストーリーの削除を行う。
// 同じIDに対する2回目の削除はSTORY_NOT_FOUNDになる（静かな成功にはしない）。
func (s *Service) Delete(ctx context.Context, requesterID, storyID string) error {
	story, err := s.storyRepo.FindByID(ctx, storyID)
	if err != nil {
		return model.NewStorageUnavailableError(err)
	}
	if story == nil {
		return model.NewStoryNotFoundError(storyID)
	}
	if !CanModify(requesterID, story) {
		return model.NewStoryForbiddenError(storyID)
	}

	deleted, err := s.storyRepo.DeleteByID(ctx, storyID)
	if err != nil {
		return model.NewStorageUnavailableError(err)
	}
	if !deleted {
		// FindByIDとDeleteの間で消えた場合もNotFound扱いにする
		return model.NewStoryNotFoundError(storyID)
	}
	return nil
}

// normalize は入力を検証し、デフォルト適用とサニタイズを行う。
func (s *Service) normalize(input model.StoryInput) (model.StoryInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return input, model.NewValidationError("タイトルは必須です")
	}
	if strings.TrimSpace(input.Body) == "" {
		return input, model.NewValidationError("本文は必須です")
	}
	if input.Status == "" {
		input.Status = model.StoryStatusPublic
	}
	if !input.Status.IsValid() {
		return input, model.NewValidationError(fmt.Sprintf("不正な公開状態です: %s", input.Status))
	}
	if s.sanitizer != nil {
		input.Body = s.sanitizer.Sanitize(input.Body)
	}
	return input, nil
}
