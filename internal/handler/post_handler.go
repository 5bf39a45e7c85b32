package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/autoblog/internal/model"
	"github.com/hitoshi/autoblog/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// List は投稿を新しい順に返す。limitが0の場合は既定の件数を使用する。
	List(ctx context.Context, limit, offset int) ([]*model.Post, error)
}

// PostHandler は投稿一覧のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// ListPosts は投稿を新しい順に返す。
// GET /posts?limit=&offset=
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	posts, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if limit == 0 {
		limit = post.DefaultListLimit
	}
	resp := postListResponse{
		Posts:  make([]postResponse, 0, len(posts)),
		Limit:  limit,
		Offset: offset,
	}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, toPostResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// queryInt はクエリパラメータを整数として読み取る。未指定の場合は0を返す。
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(key, "整数で指定してください")
	}
	return v, nil
}
