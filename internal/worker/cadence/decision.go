// Package cadence は投稿ペースに従って記事を自動生成するスケジューラを提供する。
// 判定ロジック、ティックごとの状態遷移、定期実行ドライバーを含む。
package cadence

import (
	"time"

	"github.com/hitoshi/autoblog/internal/model"
)

// DayStart はtのlocにおけるローカル日の開始時刻（0時）を返す。
func DayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// TargetInterval は1日あたりの投稿数から投稿間隔を返す。
// postsPerDayが0以下の場合は0を返す。
func TargetInterval(postsPerDay int) time.Duration {
	if postsPerDay <= 0 {
		return 0
	}
	return 24 * time.Hour / time.Duration(postsPerDay)
}

// EffectiveTolerance はティックのずれの許容幅を投稿間隔の半分までに制限して返す。
func EffectiveTolerance(tolerance, interval time.Duration) time.Duration {
	if tolerance < 0 {
		return 0
	}
	if limit := interval / 2; tolerance > limit {
		return limit
	}
	return tolerance
}

// SlotDue は当日のposted件目（0始まり）の生成枠が開く時刻を返す。
// 枠はローカル日の開始から投稿間隔ごとに並び、許容幅の半分だけ早く開く。
func SlotDue(dayStart time.Time, posted, postsPerDay int, tolerance time.Duration) time.Time {
	interval := TargetInterval(postsPerDay)
	lead := EffectiveTolerance(tolerance, interval) / 2
	return dayStart.Add(time.Duration(posted)*interval - lead)
}

// Eligible はnowの時点でティック契機の生成を行うべきかを判定する。
// 当日の生成数が上限未満で、次の生成枠が開いており、前回の生成から
// 投稿間隔（許容幅を差し引いた値）以上経過している場合にtrueを返す。
// 枠は日の開始を基準にするため、ティックの刻みによる遅れは翌日に持ち越さない。
// 前回の生成時刻以前のnowでは常にfalseを返す。
func Eligible(state model.SchedulerState, postsPerDay int, now time.Time, tolerance time.Duration) bool {
	if postsPerDay <= 0 || state.PostsGeneratedToday >= postsPerDay {
		return false
	}
	if now.Before(SlotDue(state.DayStart, state.PostsGeneratedToday, postsPerDay, tolerance)) {
		return false
	}
	if state.LastGenerationAt == nil {
		return true
	}
	last := *state.LastGenerationAt
	if !now.After(last) {
		return false
	}
	interval := TargetInterval(postsPerDay)
	return now.Sub(last) >= interval-EffectiveTolerance(tolerance, interval)
}

// rollDay はnowのローカル日がstateの日より後であれば日次カウンタをリセットする。
// 時計が戻った場合はリセットしない。リセットした場合はtrueを返す。
func rollDay(state *model.SchedulerState, now time.Time, loc *time.Location) bool {
	today := DayStart(now, loc)
	if state.DayStart.IsZero() {
		state.DayStart = today
		return false
	}
	if !today.After(state.DayStart) {
		return false
	}
	state.DayStart = today
	state.PostsGeneratedToday = 0
	state.ManualGeneratedToday = 0
	return true
}
