package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/autoblog/internal/middleware"
	"github.com/hitoshi/autoblog/internal/model"
)

// configResponse は自動投稿設定のAPIレスポンス。
type configResponse struct {
	TenantID    string    `json:"tenant_id"`
	Niches      []string  `json:"niches"`
	Language    string    `json:"language"`
	Countries   []string  `json:"countries"`
	PostsPerDay int       `json:"posts_per_day"`
	Paused      bool      `json:"paused"`
	Timezone    string    `json:"timezone"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Body        model.ArticleBody `json:"body"`
	Topics      []string          `json:"topics"`
	Media       []model.MediaItem `json:"media"`
	Language    string            `json:"language"`
	GeneratedBy string            `json:"generated_by"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	PublishedAt *time.Time        `json:"published_at"`
}

// postListResponse は投稿一覧のAPIレスポンス。
type postListResponse struct {
	Posts  []postResponse `json:"posts"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// toConfigResponse はmodel.AutomationConfigからAPIレスポンスに変換する。
func toConfigResponse(cfg *model.AutomationConfig) configResponse {
	return configResponse{
		TenantID:    cfg.TenantID,
		Niches:      nonNilStrings(cfg.Niches),
		Language:    cfg.Language,
		Countries:   nonNilStrings(cfg.Countries),
		PostsPerDay: cfg.PostsPerDay,
		Paused:      cfg.Paused,
		Timezone:    cfg.Timezone,
		UpdatedAt:   cfg.UpdatedAt,
	}
}

// toPostResponse はmodel.PostからAPIレスポンスに変換する。
func toPostResponse(p *model.Post) postResponse {
	media := p.Media
	if media == nil {
		media = []model.MediaItem{}
	}
	return postResponse{
		ID:          p.ID,
		Title:       p.Title,
		Body:        p.Body,
		Topics:      nonNilStrings(p.Topics),
		Media:       media,
		Language:    p.Language,
		GeneratedBy: string(p.Trigger),
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		PublishedAt: p.PublishedAt,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationAPIError(validationErr))
		return
	}

	var pipelineErr *model.PipelineError
	if errors.As(err, &pipelineErr) {
		slog.Warn("content pipeline failed",
			slog.String("stage", pipelineErr.Stage),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewPipelineFailedAPIError(pipelineErr))
		return
	}

	var storeErr *model.StoreError
	if errors.As(err, &storeErr) {
		slog.Error("store unavailable", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableAPIError())
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// 分類できないエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidJSON:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodePipelineFailed:
		return http.StatusBadGateway
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
