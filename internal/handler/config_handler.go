package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/autoblog/internal/middleware"
	"github.com/hitoshi/autoblog/internal/model"
)

// ConfigServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type ConfigServiceInterface interface {
	// Get は現在の設定を返す。未保存の場合は初期値を返す。
	Get(ctx context.Context) (*model.AutomationConfig, error)
	// Update は指定されたフィールドのみを更新する。
	Update(ctx context.Context, patch model.ConfigPatch) (*model.AutomationConfig, error)
	// UpdateSchedule はposts_per_dayとpausedのみを更新する。
	UpdateSchedule(ctx context.Context, patch model.SchedulePatch) (*model.AutomationConfig, error)
}

// ConfigHandler は自動投稿設定のHTTPハンドラー。
type ConfigHandler struct {
	service ConfigServiceInterface
}

// NewConfigHandler はConfigHandlerを生成する。
func NewConfigHandler(service ConfigServiceInterface) *ConfigHandler {
	return &ConfigHandler{service: service}
}

// updateConfigRequest は設定更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateConfigRequest struct {
	Niches      *[]string `json:"niches"`
	Language    *string   `json:"language"`
	Countries   *[]string `json:"countries"`
	PostsPerDay *int      `json:"posts_per_day"`
	Paused      *bool     `json:"paused"`
	Timezone    *string   `json:"timezone"`
}

// updateScheduleRequest は投稿ペース変更リクエストのボディ。
// 他の設定フィールドが含まれていても無視する。
type updateScheduleRequest struct {
	PostsPerDay *int  `json:"posts_per_day"`
	Paused      *bool `json:"paused"`
}

// GetConfig は現在の設定を返す。
// GET /config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Get(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

// UpdateConfig は設定を部分更新する。
// POST /config
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidJSONAPIError())
		return
	}

	cfg, err := h.service.Update(r.Context(), model.ConfigPatch{
		Niches:      req.Niches,
		Language:    req.Language,
		Countries:   req.Countries,
		PostsPerDay: req.PostsPerDay,
		Paused:      req.Paused,
		Timezone:    req.Timezone,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

// UpdateSchedule は投稿ペースのみを更新する。
// POST /schedule
func (h *ConfigHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidJSONAPIError())
		return
	}

	cfg, err := h.service.UpdateSchedule(r.Context(), model.SchedulePatch{
		PostsPerDay: req.PostsPerDay,
		Paused:      req.Paused,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}
