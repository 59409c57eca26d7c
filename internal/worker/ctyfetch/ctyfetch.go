// Package ctyfetch は国別プレフィックステーブル（cty.csv）の定期更新を提供する。
// 外部URLから条件付きGETで取得し、パース成功時のみ分類テーブルを差し替える。
package ctyfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/dxhub/internal/dxcc"
)

// Fetcher はcty.csvの取得と分類テーブルの更新を行う。
// ETag/Last-Modifiedによる条件付きGETで、変更がない場合の転送を回避する。
type Fetcher struct {
	classifier *dxcc.Classifier
	client     *http.Client
	url        string
	maxSize    int64
	logger     *slog.Logger

	// 条件付きGET用に直前のレスポンスのバリデータを保持する。
	etag         string
	lastModified string
}

// NewFetcher はFetcherを生成する。
// clientにはSSRF防止機能付きのHTTPクライアントを渡すこと。
func NewFetcher(classifier *dxcc.Classifier, client *http.Client, url string, maxSize int64, logger *slog.Logger) *Fetcher {
	if maxSize <= 0 {
		maxSize = 2 << 20
	}
	return &Fetcher{
		classifier: classifier,
		client:     client,
		url:        url,
		maxSize:    maxSize,
		logger:     logger,
	}
}

// Start は指定間隔で定期更新を起動する。
// コンテキストがキャンセルされるまで実行を継続する。
// 取得失敗時は現行テーブルを維持して次回ティックを待つ。
func (f *Fetcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	f.logger.Info("プレフィックステーブル更新ジョブを開始しました",
		slog.String("url", f.url),
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("プレフィックステーブル更新ジョブを停止しました")
			return
		case <-ticker.C:
			if err := f.RunOnce(ctx); err != nil {
				f.logger.Error("プレフィックステーブルの更新に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はcty.csvを1回取得し、変更があれば分類テーブルを差し替える。
// 304 Not Modifiedは正常系として現行テーブルを維持する。
func (f *Fetcher) RunOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	if f.etag != "" {
		req.Header.Set("If-None-Match", f.etag)
	}
	if f.lastModified != "" {
		req.Header.Set("If-Modified-Since", f.lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("cty.csvの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		f.logger.Debug("プレフィックステーブルに変更はありません")
		return nil
	case http.StatusOK:
		// fall through
	default:
		return fmt.Errorf("cty.csvの取得で予期しないステータスを受信しました: %d", resp.StatusCode)
	}

	if err := f.classifier.Reload(io.LimitReader(resp.Body, f.maxSize)); err != nil {
		return fmt.Errorf("プレフィックステーブルの差し替えに失敗しました: %w", err)
	}

	f.etag = resp.Header.Get("ETag")
	f.lastModified = resp.Header.Get("Last-Modified")

	f.logger.Info("プレフィックステーブルを更新しました",
		slog.Int("entries", f.classifier.Size()),
	)

	return nil
}
