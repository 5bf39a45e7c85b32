package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, store, pipeline, system
	Action   string // ユーザー向け対処方法
	Field    string // 入力検証エラーの対象フィールド（該当しない場合は空）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodePipelineFailed   = "PIPELINE_FAILED"
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ValidationError はControl APIへの不正な入力を表す。
// 状態を変更せずに同期的に拒否される。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("入力値が不正です: %s: %s", e.Field, e.Reason)
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError は永続化層の失敗を表す。
// スケジューラは一時的な失敗として扱い、次のティックで再試行する。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%sに失敗しました: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError はStoreErrorを生成する。
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// パイプラインの失敗段階
const (
	PipelineStageTrends  = "trends"
	PipelineStageArticle = "article"
	PipelineStageVerify  = "verify"
)

// PipelineError はトレンド取得または記事生成の失敗を表す。
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("コンテンツ生成(%s)に失敗しました: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError はPipelineErrorを生成する。
func NewPipelineError(stage string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}

// NewValidationAPIError は入力検証エラーのAPIErrorを生成する。
func NewValidationAPIError(err *ValidationError) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s (%s)", err.Field, err.Reason),
		Category: "validation",
		Action:   "リクエストの内容を確認してください。",
		Field:    err.Field,
	}
}

// NewStoreUnavailableAPIError は永続化層エラーのAPIErrorを生成する。
func NewStoreUnavailableAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアにアクセスできませんでした。",
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPipelineFailedAPIError はコンテンツ生成失敗のAPIErrorを生成する。
func NewPipelineFailedAPIError(err *PipelineError) *APIError {
	return &APIError{
		Code:     ErrCodePipelineFailed,
		Message:  fmt.Sprintf("記事の生成に失敗しました (%s)。", err.Stage),
		Category: "pipeline",
		Action:   "トレンド取得元・記事生成元の設定を確認し、再度お試しください。",
	}
}

// NewInvalidJSONAPIError はリクエストボディの解析失敗のAPIErrorを生成する。
func NewInvalidJSONAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidJSON,
		Message:  "リクエストボディのJSONを解析できませんでした。",
		Category: "validation",
		Action:   "JSON形式のリクエストボディを送信してください。",
	}
}

// NewUnauthorizedAPIError は認証失敗のAPIErrorを生成する。
func NewUnauthorizedAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "Authorizationヘッダーに有効なAPIトークンを指定してください。",
	}
}

// NewRateLimitedAPIError はレート制限超過のAPIErrorを生成する。
func NewRateLimitedAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalAPIError は内部エラーのAPIErrorを生成する。
func NewInternalAPIError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
