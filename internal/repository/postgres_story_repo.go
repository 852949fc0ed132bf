package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/storyhub/internal/model"
)

// PostgresStoryRepo はPostgreSQLを使用したストーリーリポジトリ。
type PostgresStoryRepo struct {
	db *sql.DB
}

// NewPostgresStoryRepo はPostgresStoryRepoを生成する。
func NewPostgresStoryRepo(db *sql.DB) *PostgresStoryRepo {
	return &PostgresStoryRepo{db: db}
}

const storyColumns = `id, title, body, status, owner_id, created_at, updated_at`

// FindByID は指定IDのストーリーを取得する。見つからない場合はnilを返す。
func (r *PostgresStoryRepo) FindByID(ctx context.Context, id string) (*model.Story, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE id = $1`,
		id,
	)
	story, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find story: %w", err)
	}
	return story, nil
}

// ListByOwner は所有者のストーリー一覧をcreated_at降順で返す。
// 該当なしの場合は空スライスを返す（エラーにしない）。
func (r *PostgresStoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Story, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM stories
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories by owner: %w", err)
	}
	defer rows.Close()

	return collectStories(rows)
}

// ListPublic は公開ストーリー一覧をcreated_at降順で返す。
func (r *PostgresStoryRepo) ListPublic(ctx context.Context) ([]*model.Story, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM stories
		 WHERE status = $1
		 ORDER BY created_at DESC`,
		string(model.StoryStatusPublic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list public stories: %w", err)
	}
	defer rows.Close()

	return collectStories(rows)
}

// Create はストーリーを作成する。
func (r *PostgresStoryRepo) Create(ctx context.Context, story *model.Story) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stories (id, title, body, status, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		story.ID, story.Title, story.Body, string(story.Status), story.OwnerID, story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

// Update はtitle, body, status, updated_atを上書きする。
// owner_idとcreated_atはUPDATE対象に含めない。
func (r *PostgresStoryRepo) Update(ctx context.Context, story *model.Story) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE stories SET title = $2, body = $3, status = $4, updated_at = $5
		 WHERE id = $1`,
		story.ID, story.Title, story.Body, string(story.Status), story.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("story not found: %s", story.ID)
	}
	return nil
}

// DeleteByID は指定IDのストーリーを削除する。
// 削除した場合はtrue、該当行がなかった場合はfalseを返す。
// 2回目の削除はfalseになり、呼び出し側でNotFoundとして扱う。
func (r *PostgresStoryRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM stories WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete story: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStory は1行をmodel.Storyにスキャンする。
func scanStory(row rowScanner) (*model.Story, error) {
	story := &model.Story{}
	var status string
	err := row.Scan(&story.ID, &story.Title, &story.Body, &status,
		&story.OwnerID, &story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		return nil, err
	}
	story.Status = model.StoryStatus(status)
	return story, nil
}

// collectStories は結果セット全体をスライスに集める。
func collectStories(rows *sql.Rows) ([]*model.Story, error) {
	stories := []*model.Story{}
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}
	return stories, nil
}

// compile-time interface check
var _ StoryRepository = (*PostgresStoryRepo)(nil)
