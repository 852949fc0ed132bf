package story

import "github.com/hitoshi/storyhub/internal/model"

// CanModify は所有権判定の唯一の実装。
// 更新・削除の強制とUI側の編集アイコン表示判定の両方がこの関数を使い、
// 判定ロジックが分岐しないようにする。
func CanModify(requesterID string, s *model.Story) bool {
	if s == nil || requesterID == "" {
		return false
	}
	return s.OwnerID == requesterID
}

// CanView は閲覧可否を判定する。
// 公開ストーリーは認証済みユーザー全員、非公開ストーリーは所有者のみ。
func CanView(requesterID string, s *model.Story) bool {
	if s == nil || requesterID == "" {
		return false
	}
	if s.Status == model.StoryStatusPublic {
		return true
	}
	return CanModify(requesterID, s)
}
