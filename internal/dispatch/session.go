// Package dispatch は接続セッションの管理とスポット・アナウンスのファンアウト配信を提供する。
package dispatch

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/dxhub/internal/model"
)

// Event はセッションへ配信される1件のスポットまたはアナウンス。
type Event struct {
	Spot         *model.Spot
	Announcement *model.Announcement
}

// Session は接続中のオペレーター1人分のトランジェントな配信状態を表す。
// ユーザープロファイル（フィルタルール・配信設定）のスナップショットを保持し、
// プロファイル変更時にディスパッチャ経由で差し替えられる。
// 再接続で新しいSessionが生成され、切断で破棄される。
type Session struct {
	id    string
	call  string
	queue chan Event

	mu           sync.RWMutex
	rules        model.FilterRuleSet
	spotsEnabled bool
	annEnabled   bool
	closed       bool
}

func newSession(call string, user *model.User, rules model.FilterRuleSet, queueSize int) *Session {
	return &Session{
		id:           uuid.NewString(),
		call:         call,
		queue:        make(chan Event, queueSize),
		rules:        rules.Clone(),
		spotsEnabled: user.SpotsEnabled,
		annEnabled:   user.AnnEnabled,
	}
}

// ID はセッション識別子を返す。
func (s *Session) ID() string {
	return s.id
}

// Call はセッション所有者のコールサインを返す。
func (s *Session) Call() string {
	return s.call
}

// Events は配信キューの受信側チャネルを返す。
// セッションのデタッチ時にクローズされる。
func (s *Session) Events() <-chan Event {
	return s.queue
}

// snapshot は評価に使用するルールセットと配信設定を同時に取得する。
func (s *Session) snapshot() (model.FilterRuleSet, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules, s.spotsEnabled, s.annEnabled
}

// setRules はルールセットを差し替える。評価中の配信はデタッチ前のルールで完了する。
func (s *Session) setRules(rules model.FilterRuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules.Clone()
}

// setSettings は配信設定を差し替える。
func (s *Session) setSettings(spotsEnabled, annEnabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spotsEnabled = spotsEnabled
	s.annEnabled = annEnabled
}

// offer はイベントをノンブロッキングでキューに積む。
// キューが満杯またはクローズ済みの場合はfalseを返し、イベントは破棄される
// （遅い購読者が配信全体を停滞させないため）。
// RLock保持中に送信することで、closeQueueとの競合を防ぐ。
func (s *Session) offer(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.queue <- ev:
		return true
	default:
		return false
	}
}

// closeQueue は配信キューをクローズする。以降のofferは全てfalseを返す。
func (s *Session) closeQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.queue)
}
