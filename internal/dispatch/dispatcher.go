package dispatch

import (
	"log/slog"
	"sync"

	"github.com/hitoshi/dxhub/internal/filter"
	"github.com/hitoshi/dxhub/internal/metrics"
	"github.com/hitoshi/dxhub/internal/model"
)

// Dispatcher は取り込まれたスポット・アナウンスを接続中の全セッションへ配信する。
// セッションごとのフィルタ評価はsemaphoreパターンで並列実行されるが、
// スポット間の順序は発行のシリアライズにより全セッションで保存される。
type Dispatcher struct {
	engine         *filter.Engine
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
	queueSize      int

	mu       sync.RWMutex
	sessions map[string]*Session

	// publishMu は発行をシリアライズし、取り込み順の配信を保証する。
	publishMu sync.Mutex
}

// NewDispatcher はDispatcherを生成する。
// maxConcurrencyが0以下の場合はデフォルト値16、queueSizeが0以下の場合は64を使用する。
func NewDispatcher(engine *filter.Engine, collector metrics.MetricsCollector, logger *slog.Logger, maxConcurrency, queueSize int) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		engine:         engine,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		queueSize:      queueSize,
		sessions:       make(map[string]*Session),
	}
}

// Attach はユーザーの新しいセッションを登録し、配信を開始する。
// 同一コールサインの複数セッションは独立して配信を受ける。
func (d *Dispatcher) Attach(user *model.User, rules model.FilterRuleSet) *Session {
	session := newSession(user.Call, user, rules, d.queueSize)

	d.mu.Lock()
	d.sessions[session.id] = session
	count := len(d.sessions)
	d.mu.Unlock()

	d.collector.SetConnectedSessions(count)
	d.logger.Info("セッションを登録しました",
		slog.String("session_id", session.id),
		slog.String("call", session.call),
		slog.Int("connected", count),
	)

	return session
}

// Detach はセッションを登録解除し、配信キューをクローズする。
func (d *Dispatcher) Detach(sessionID string) {
	d.mu.Lock()
	session, ok := d.sessions[sessionID]
	if ok {
		delete(d.sessions, sessionID)
	}
	count := len(d.sessions)
	d.mu.Unlock()

	if !ok {
		return
	}

	session.closeQueue()
	d.collector.SetConnectedSessions(count)
	d.logger.Info("セッションを登録解除しました",
		slog.String("session_id", sessionID),
		slog.String("call", session.call),
		slog.Int("connected", count),
	)
}

// PublishSpot はスポットを全セッションに向けて発行する。
// セッションごとにフィルタ評価を行い、通過したセッションのキューにのみ積む。
// キュー満杯のセッションへの配信は破棄される（ブロックしない）。
func (d *Dispatcher) PublishSpot(spot *model.Spot) {
	d.publishMu.Lock()
	defer d.publishMu.Unlock()

	d.fanout(func(session *Session) {
		rules, spotsEnabled, _ := session.snapshot()
		if !spotsEnabled || !d.engine.AdmitsSpot(spot, rules) {
			d.collector.RecordSpotSuppressed()
			return
		}
		if session.offer(Event{Spot: spot}) {
			d.collector.RecordSpotDelivered()
		} else {
			d.collector.RecordSpotDropped()
			d.logger.Warn("配信キューが満杯のためスポットを破棄しました",
				slog.String("session_id", session.id),
				slog.String("call", session.call),
				slog.String("spot_id", spot.ID),
			)
		}
	})
}

// PublishAnnouncement はアナウンスを全セッションに向けて発行する。
func (d *Dispatcher) PublishAnnouncement(ann *model.Announcement) {
	d.publishMu.Lock()
	defer d.publishMu.Unlock()

	d.fanout(func(session *Session) {
		rules, _, annEnabled := session.snapshot()
		if !annEnabled || !d.engine.AdmitsAnnouncement(ann, rules) {
			return
		}
		if session.offer(Event{Announcement: ann}) {
			d.collector.RecordAnnouncementDelivered()
		}
	})
}

// UpdateRules は指定コールサインの全セッションのルールセットを差し替える。
// フィルタサービスのRuleChangeListenerとして登録される。
func (d *Dispatcher) UpdateRules(call string, rules model.FilterRuleSet) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, session := range d.sessions {
		if session.call == call {
			session.setRules(rules)
		}
	}
}

// UpdateSettings は指定コールサインの全セッションの配信設定を差し替える。
func (d *Dispatcher) UpdateSettings(call string, spotsEnabled, annEnabled bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, session := range d.sessions {
		if session.call == call {
			session.setSettings(spotsEnabled, annEnabled)
		}
	}
}

// SessionCount は接続中のセッション数を返す。
func (d *Dispatcher) SessionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// fanout は全セッションに対する評価をsemaphoreパターンで並列実行し、完了を待つ。
func (d *Dispatcher) fanout(deliver func(*Session)) {
	d.mu.RLock()
	targets := make([]*Session, 0, len(d.sessions))
	for _, session := range d.sessions {
		targets = append(targets, session)
	}
	d.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	sem := make(chan struct{}, d.maxConcurrency)
	var wg sync.WaitGroup

	for _, session := range targets {
		wg.Add(1)
		sem <- struct{}{}

		go func(s *Session) {
			defer wg.Done()
			defer func() { <-sem }()
			deliver(s)
		}(session)
	}

	wg.Wait()
}
