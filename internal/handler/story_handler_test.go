package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storyhub/internal/middleware"
	"github.com/hitoshi/storyhub/internal/model"
)

// --- モック定義 ---

// mockStoryService はStoryServiceInterfaceのモック実装。
type mockStoryService struct {
	listOwnFn    func(ctx context.Context, requesterID string) ([]*model.Story, error)
	listPublicFn func(ctx context.Context, requesterID string) ([]*model.Story, error)
	getOneFn     func(ctx context.Context, requesterID, storyID string) (*model.Story, error)
	createFn     func(ctx context.Context, requesterID string, input model.StoryInput) (*model.Story, error)
	updateFn     func(ctx context.Context, requesterID, storyID string, input model.StoryInput) (*model.Story, error)
	deleteFn     func(ctx context.Context, requesterID, storyID string) error
}

func (m *mockStoryService) ListOwn(ctx context.Context, requesterID string) ([]*model.Story, error) {
	if m.listOwnFn != nil {
		return m.listOwnFn(ctx, requesterID)
	}
	return nil, nil
}

func (m *mockStoryService) ListPublic(ctx context.Context, requesterID string) ([]*model.Story, error) {
	if m.listPublicFn != nil {
		return m.listPublicFn(ctx, requesterID)
	}
	return nil, nil
}

func (m *mockStoryService) GetOne(ctx context.Context, requesterID, storyID string) (*model.Story, error) {
	if m.getOneFn != nil {
		return m.getOneFn(ctx, requesterID, storyID)
	}
	return nil, nil
}

func (m *mockStoryService) Create(ctx context.Context, requesterID string, input model.StoryInput) (*model.Story, error) {
	if m.createFn != nil {
		return m.createFn(ctx, requesterID, input)
	}
	return nil, nil
}

func (m *mockStoryService) Update(ctx context.Context, requesterID, storyID string, input model.StoryInput) (*model.Story, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, requesterID, storyID, input)
	}
	return nil, nil
}

func (m *mockStoryService) Delete(ctx context.Context, requesterID, storyID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, requesterID, storyID)
	}
	return nil
}

var _ StoryServiceInterface = (*mockStoryService)(nil)

// withUserID は認証済みユーザーIDをコンテキストに注入したリクエストを返す。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withURLParam はchiのURLパラメータを設定したリクエストを返す。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// --- GET /api/stories テスト ---

func TestStoryHandler_ListMine_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	svc := &mockStoryService{
		listOwnFn: func(ctx context.Context, requesterID string) ([]*model.Story, error) {
			if requesterID != "user-1" {
				t.Errorf("requesterID = %q, want %q", requesterID, "user-1")
			}
			return []*model.Story{
				{ID: "s-2", Title: "新しい話", OwnerID: "user-1", Status: model.StoryStatusPrivate, CreatedAt: now},
				{ID: "s-1", Title: "古い話", OwnerID: "user-1", Status: model.StoryStatusPublic, CreatedAt: now.Add(-time.Hour)},
			}, nil
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories", nil), "user-1")
	rec := httptest.NewRecorder()

	h.ListMine(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got []storyResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d stories, want 2", len(got))
	}
	// 自分のストーリーは非公開も含めてcan_modifyが立つ
	for _, s := range got {
		if !s.CanModify {
			t.Errorf("story %s: canModify = false, want true", s.ID)
		}
	}
}

func TestStoryHandler_ListMine_NoUser_Returns401(t *testing.T) {
	h := NewStoryHandler(&mockStoryService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stories", nil)
	rec := httptest.NewRecorder()

	h.ListMine(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestStoryHandler_ListMine_EmptyResult_ReturnsEmptyArray(t *testing.T) {
	svc := &mockStoryService{
		listOwnFn: func(ctx context.Context, requesterID string) ([]*model.Story, error) {
			return []*model.Story{}, nil
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories", nil), "user-1")
	rec := httptest.NewRecorder()

	h.ListMine(rec, req)

	// nullではなく[]を返す
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

// --- GET /api/stories/public テスト ---

func TestStoryHandler_ListPublic_MarksOwnStoriesModifiable(t *testing.T) {
	svc := &mockStoryService{
		listPublicFn: func(ctx context.Context, requesterID string) ([]*model.Story, error) {
			return []*model.Story{
				{ID: "s-1", OwnerID: "user-1", Status: model.StoryStatusPublic},
				{ID: "s-2", OwnerID: "user-2", Status: model.StoryStatusPublic},
			}, nil
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories/public", nil), "user-1")
	rec := httptest.NewRecorder()

	h.ListPublic(rec, req)

	var got []storyResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d stories, want 2", len(got))
	}
	if !got[0].CanModify {
		t.Error("own story should be modifiable")
	}
	if got[1].CanModify {
		t.Error("other's story should not be modifiable")
	}
}

func TestStoryHandler_ListPublic_StorageFailure_Returns503(t *testing.T) {
	svc := &mockStoryService{
		listPublicFn: func(ctx context.Context, requesterID string) ([]*model.Story, error) {
			return nil, model.NewStorageUnavailableError(errors.New("db down"))
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories/public", nil), "user-1")
	rec := httptest.NewRecorder()

	h.ListPublic(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if body := decodeErrorResponse(t, rec); body.Code != model.ErrCodeStorageUnavailable {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeStorageUnavailable)
	}
}

// --- GET /api/stories/{storyID} テスト ---

func TestStoryHandler_Get_Success(t *testing.T) {
	svc := &mockStoryService{
		getOneFn: func(ctx context.Context, requesterID, storyID string) (*model.Story, error) {
			if storyID != "s-1" {
				t.Errorf("storyID = %q, want %q", storyID, "s-1")
			}
			return &model.Story{ID: storyID, Title: "T", OwnerID: "user-2", Status: model.StoryStatusPublic}, nil
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories/s-1", nil), "user-1")
	req = withURLParam(req, "storyID", "s-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got storyResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "s-1" {
		t.Errorf("ID = %q, want %q", got.ID, "s-1")
	}
	if got.CanModify {
		t.Error("non-owner should not see canModify = true")
	}
}

func TestStoryHandler_Get_NotFound_Returns404(t *testing.T) {
	svc := &mockStoryService{
		getOneFn: func(ctx context.Context, requesterID, storyID string) (*model.Story, error) {
			return nil, model.NewStoryNotFoundError(storyID)
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories/missing", nil), "user-1")
	req = withURLParam(req, "storyID", "missing")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStoryHandler_Get_PrivateNonOwner_Returns403(t *testing.T) {
	svc := &mockStoryService{
		getOneFn: func(ctx context.Context, requesterID, storyID string) (*model.Story, error) {
			return nil, model.NewStoryForbiddenError(storyID)
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories/s-1", nil), "user-2")
	req = withURLParam(req, "storyID", "s-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

// --- POST /api/stories テスト ---

func TestStoryHandler_Create_Success(t *testing.T) {
	svc := &mockStoryService{
		createFn: func(ctx context.Context, requesterID string, input model.StoryInput) (*model.Story, error) {
			if requesterID != "user-1" {
				t.Errorf("requesterID = %q, want %q", requesterID, "user-1")
			}
			if input.Title != "新しい話" {
				t.Errorf("title = %q, want %q", input.Title, "新しい話")
			}
			return &model.Story{
				ID:      "s-new",
				Title:   input.Title,
				Body:    input.Body,
				Status:  model.StoryStatusPublic,
				OwnerID: requesterID,
			}, nil
		},
	}
	h := NewStoryHandler(svc, nil)

	body, _ := json.Marshal(storyRequest{Title: "新しい話", Body: "本文"})
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/stories", bytes.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var got storyResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "s-new" {
		t.Errorf("ID = %q, want %q", got.ID, "s-new")
	}
	if !got.CanModify {
		t.Error("creator should be able to modify the new story")
	}
}

func TestStoryHandler_Create_InvalidJSON_Returns400(t *testing.T) {
	h := NewStoryHandler(&mockStoryService{}, nil)

	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/stories", bytes.NewReader([]byte("{broken"))), "user-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStoryHandler_Create_ValidationError_Returns400(t *testing.T) {
	svc := &mockStoryService{
		createFn: func(ctx context.Context, requesterID string, input model.StoryInput) (*model.Story, error) {
			return nil, model.NewValidationError("タイトルは必須です")
		},
	}
	h := NewStoryHandler(svc, nil)

	body, _ := json.Marshal(storyRequest{Title: "", Body: "本文"})
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/stories", bytes.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := decodeErrorResponse(t, rec); got.Code != model.ErrCodeValidation {
		t.Errorf("error code = %q, want %q", got.Code, model.ErrCodeValidation)
	}
}

// --- PUT /api/stories/{storyID} テスト ---

func TestStoryHandler_Update_NonOwner_Returns403(t *testing.T) {
	svc := &mockStoryService{
		updateFn: func(ctx context.Context, requesterID, storyID string, input model.StoryInput) (*model.Story, error) {
			return nil, model.NewStoryForbiddenError(storyID)
		},
	}
	h := NewStoryHandler(svc, nil)

	body, _ := json.Marshal(storyRequest{Title: "T", Body: "B"})
	req := withUserID(httptest.NewRequest(http.MethodPut, "/api/stories/s-1", bytes.NewReader(body)), "user-2")
	req = withURLParam(req, "storyID", "s-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestStoryHandler_Update_Success(t *testing.T) {
	svc := &mockStoryService{
		updateFn: func(ctx context.Context, requesterID, storyID string, input model.StoryInput) (*model.Story, error) {
			return &model.Story{
				ID:      storyID,
				Title:   input.Title,
				Body:    input.Body,
				Status:  input.Status,
				OwnerID: requesterID,
			}, nil
		},
	}
	h := NewStoryHandler(svc, nil)

	body, _ := json.Marshal(storyRequest{Title: "改訂版", Body: "B", Status: "private"})
	req := withUserID(httptest.NewRequest(http.MethodPut, "/api/stories/s-1", bytes.NewReader(body)), "user-1")
	req = withURLParam(req, "storyID", "s-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got storyResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Title != "改訂版" {
		t.Errorf("title = %q, want %q", got.Title, "改訂版")
	}
	if got.Status != "private" {
		t.Errorf("status = %q, want %q", got.Status, "private")
	}
}

// --- DELETE /api/stories/{storyID} テスト ---

func TestStoryHandler_Delete_Success_Returns204(t *testing.T) {
	var deletedID string
	svc := &mockStoryService{
		deleteFn: func(ctx context.Context, requesterID, storyID string) error {
			deletedID = storyID
			return nil
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/stories/s-1", nil), "user-1")
	req = withURLParam(req, "storyID", "s-1")
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if deletedID != "s-1" {
		t.Errorf("deleted ID = %q, want %q", deletedID, "s-1")
	}
}

func TestStoryHandler_Delete_AlreadyDeleted_Returns404(t *testing.T) {
	svc := &mockStoryService{
		deleteFn: func(ctx context.Context, requesterID, storyID string) error {
			return model.NewStoryNotFoundError(storyID)
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/stories/s-1", nil), "user-1")
	req = withURLParam(req, "storyID", "s-1")
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStoryHandler_UnknownServiceError_Returns500(t *testing.T) {
	svc := &mockStoryService{
		listOwnFn: func(ctx context.Context, requesterID string) ([]*model.Story, error) {
			return nil, errors.New("unexpected failure")
		},
	}
	h := NewStoryHandler(svc, nil)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/stories", nil), "user-1")
	rec := httptest.NewRecorder()

	h.ListMine(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
