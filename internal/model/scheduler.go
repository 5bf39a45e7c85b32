package model

import "time"

// SchedulerState は投稿ペーススケジューラのプロセス内状態を表す。
// 再起動時はPost Storeから再構築される。
type SchedulerState struct {
	LastTickAt           time.Time
	LastGenerationAt     *time.Time // 最後にティック契機で生成した時刻。未生成ならnil
	PostsGeneratedToday  int        // ティック契機の当日生成数
	ManualGeneratedToday int        // 手動生成の当日件数。投稿ペースの上限には含めない
	DayStart             time.Time  // カウンタが属するローカル日の開始時刻
}

// Snapshot は状態のコピーを返す。
func (s *SchedulerState) Snapshot() SchedulerState {
	cp := *s
	if s.LastGenerationAt != nil {
		t := *s.LastGenerationAt
		cp.LastGenerationAt = &t
	}
	return cp
}
