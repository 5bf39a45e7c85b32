package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/autoblog/internal/model"
)

// SchedulerStateReader はスケジューラの状態を読み取るインターフェース。
type SchedulerStateReader interface {
	State() model.SchedulerState
}

// SchedulerHandler はスケジューラ状態のHTTPハンドラー。
type SchedulerHandler struct {
	reader SchedulerStateReader
}

// NewSchedulerHandler はSchedulerHandlerを生成する。
func NewSchedulerHandler(reader SchedulerStateReader) *SchedulerHandler {
	return &SchedulerHandler{reader: reader}
}

// schedulerStateResponse はスケジューラ状態のAPIレスポンス。
// 一度もティックしていない場合、時刻フィールドはnullになる。
type schedulerStateResponse struct {
	LastTickAt           *time.Time `json:"last_tick_at"`
	LastGenerationAt     *time.Time `json:"last_generation_at"`
	PostsGeneratedToday  int        `json:"posts_generated_today"`
	ManualGeneratedToday int        `json:"manual_generated_today"`
	DayStart             *time.Time `json:"day_start"`
}

// GetState はスケジューラ状態のスナップショットを返す。
// GET /scheduler
func (h *SchedulerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state := h.reader.State()

	writeJSON(w, http.StatusOK, schedulerStateResponse{
		LastTickAt:           timeOrNil(state.LastTickAt),
		LastGenerationAt:     state.LastGenerationAt,
		PostsGeneratedToday:  state.PostsGeneratedToday,
		ManualGeneratedToday: state.ManualGeneratedToday,
		DayStart:             timeOrNil(state.DayStart),
	})
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
