package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hitoshi/autoblog/internal/middleware"
	"github.com/hitoshi/autoblog/internal/model"
)

// ConfigGetter は現在の設定を取得するインターフェース。
type ConfigGetter interface {
	Get(ctx context.Context) (*model.AutomationConfig, error)
}

// ManualGenerator は投稿ペースの判定を行わずに投稿を生成するインターフェース。
// cadence.Schedulerが実装する。
type ManualGenerator interface {
	GenerateNow(ctx context.Context, cfg *model.AutomationConfig, topics []string) (*model.Post, error)
}

// GenerateHandler は即時生成のHTTPハンドラー。
type GenerateHandler struct {
	configs   ConfigGetter
	generator ManualGenerator
}

// NewGenerateHandler はGenerateHandlerを生成する。
func NewGenerateHandler(configs ConfigGetter, generator ManualGenerator) *GenerateHandler {
	return &GenerateHandler{configs: configs, generator: generator}
}

// generateRequest は即時生成リクエストのボディ。ボディ自体を省略できる。
type generateRequest struct {
	Topics []string `json:"topics"`
}

// Generate はコンテンツパイプラインを即時に実行し、生成した投稿を返す。
// POST /generate
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidJSONAPIError())
		return
	}

	topics := normalizeTopics(req.Topics)
	if len(req.Topics) > 0 && len(topics) == 0 {
		handleServiceError(w, model.NewValidationError("topics", "空でないトピックを1件以上指定してください"))
		return
	}

	cfg, err := h.configs.Get(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	post, err := h.generator.GenerateNow(r.Context(), cfg, topics)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// normalizeTopics は各トピックの連続する空白を1つにまとめ、空のトピックを除く。
// 1件も残らない場合はnilを返す。
func normalizeTopics(raw []string) []string {
	var out []string
	for _, t := range raw {
		if s := strings.Join(strings.Fields(t), " "); s != "" {
			out = append(out, s)
		}
	}
	return out
}
