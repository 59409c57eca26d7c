package spot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/hitoshi/dxhub/internal/band"
	"github.com/hitoshi/dxhub/internal/dxcc"
	"github.com/hitoshi/dxhub/internal/model"
)

// 周波数（kHz）として受理する絶対範囲。上限は30GHz。
// この範囲外の周波数は唯一の取り込み拒否理由（MalformedSpot）となる。
const (
	minFrequencyKHz = 0
	maxFrequencyKHz = 30_000_000
)

// Normalizer は生スポットを正規化済みSpotに変換する。
// バンド分類とプレフィックス分類を適用し、タイムスタンプを確定させる。
type Normalizer struct {
	classifier *dxcc.Classifier
	clock      clockwork.Clock
}

// NewNormalizer はNormalizerを生成する。
func NewNormalizer(classifier *dxcc.Classifier, clock clockwork.Clock) *Normalizer {
	return &Normalizer{classifier: classifier, clock: clock}
}

// Normalize は生スポットを検証・正規化する。
// 周波数がパース不能または絶対範囲外の場合のみMalformedSpotで拒否する。
// バンド未解決と未知プレフィックスは正常系として空メタデータのまま通す。
// タイムスタンプは中継ノード由来の値があればそのまま保持し、なければ取り込み時刻を刻印する。
func (n *Normalizer) Normalize(raw model.RawSpot) (*model.Spot, error) {
	freq, err := strconv.ParseFloat(strings.TrimSpace(raw.Frequency), 64)
	if err != nil {
		return nil, model.NewMalformedSpotError(fmt.Sprintf("周波数をパースできません: %q", raw.Frequency))
	}
	if freq <= minFrequencyKHz || freq > maxFrequencyKHz {
		return nil, model.NewMalformedSpotError(fmt.Sprintf("周波数が範囲外です: %g kHz", freq))
	}

	de := strings.ToUpper(strings.TrimSpace(raw.DE))
	dx := strings.ToUpper(strings.TrimSpace(raw.DX))
	if de == "" || dx == "" {
		return nil, model.NewMalformedSpotError("コールサインが空です")
	}

	spot := &model.Spot{
		ID:        uuid.NewString(),
		DE:        de,
		Frequency: freq,
		DX:        dx,
		Comment:   strings.TrimSpace(raw.Comment),
		Signal:    raw.Signal,
	}

	if b, mode, ok := band.Classify(freq); ok {
		spot.Band = b
		spot.Mode = mode
	} else {
		spot.Band = model.BandUnknown
	}

	entDE := n.classifier.Lookup(de)
	spot.ContDE = entDE.Continent
	spot.ITUDE = entDE.ITUZone
	spot.CQDE = entDE.CQZone

	entDX := n.classifier.Lookup(dx)
	spot.ContDX = entDX.Continent
	spot.ITUDX = entDX.ITUZone
	spot.CQDX = entDX.CQZone

	if raw.Time != nil {
		spot.Time = raw.Time.UTC()
	} else {
		spot.Time = n.clock.Now().UTC()
	}

	return spot, nil
}
