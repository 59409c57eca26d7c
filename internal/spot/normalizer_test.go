package spot

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hitoshi/dxhub/internal/dxcc"
	"github.com/hitoshi/dxhub/internal/model"
)

func newTestNormalizer(t *testing.T, now time.Time) *Normalizer {
	t.Helper()
	classifier, err := dxcc.New()
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}
	return NewNormalizer(classifier, clockwork.NewFakeClockAt(now))
}

// TestNormalizer_Normalize_Success は正規化の正常系を検証する。
func TestNormalizer_Normalize_Success(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	n := newTestNormalizer(t, now)

	// 7040kHzはEA1ABC（スペイン、EU）による40mバンドRTTYサブレンジのスポット。
	spot, err := n.Normalize(model.RawSpot{
		DE:        "EA1ABC",
		Frequency: "7040",
		DX:        "JA1NUT",
		Comment:   "up 2",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if spot.ID == "" {
		t.Error("ID is empty")
	}
	if spot.Band != "40" {
		t.Errorf("Band = %q, want %q", spot.Band, "40")
	}
	if spot.Mode != "RTTY" {
		t.Errorf("Mode = %q, want %q", spot.Mode, "RTTY")
	}
	if spot.ContDE != "EU" {
		t.Errorf("ContDE = %q, want %q", spot.ContDE, "EU")
	}
	if spot.ContDX != "AS" {
		t.Errorf("ContDX = %q, want %q", spot.ContDX, "AS")
	}
	if spot.Frequency != 7040 {
		t.Errorf("Frequency = %g, want 7040", spot.Frequency)
	}
	if !spot.Time.Equal(now) {
		t.Errorf("Time = %v, want %v", spot.Time, now)
	}
}

// TestNormalizer_Normalize_PreservesRelayTimestamp は中継タイムスタンプがそのまま保持されることを検証する。
func TestNormalizer_Normalize_PreservesRelayTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	n := newTestNormalizer(t, now)

	relayed := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	spot, err := n.Normalize(model.RawSpot{
		DE:        "K8SMC",
		Frequency: "14025.0",
		DX:        "OH2BH",
		Time:      &relayed,
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !spot.Time.Equal(relayed) {
		t.Errorf("Time = %v, want relayed %v", spot.Time, relayed)
	}
}

// TestNormalizer_Normalize_ToleratesUnresolvedBand はバンド未解決が正常な結果として扱われることを検証する。
func TestNormalizer_Normalize_ToleratesUnresolvedBand(t *testing.T) {
	n := newTestNormalizer(t, time.Now())

	spot, err := n.Normalize(model.RawSpot{
		DE:        "K8SMC",
		Frequency: "6000",
		DX:        "OH2BH",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if spot.Band != model.BandUnknown {
		t.Errorf("Band = %q, want BandUnknown", spot.Band)
	}
	if spot.Mode != "" {
		t.Errorf("Mode = %q, want empty", spot.Mode)
	}
}

// TestNormalizer_Normalize_UnknownPrefixYieldsEmptyMetadata は未知プレフィックスで
// メタデータが空のまま成功することを検証する。
func TestNormalizer_Normalize_UnknownPrefixYieldsEmptyMetadata(t *testing.T) {
	n := newTestNormalizer(t, time.Now())

	spot, err := n.Normalize(model.RawSpot{
		DE:        "T88AA",
		Frequency: "14074.0",
		DX:        "5T5PA",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if spot.ContDE != "" || spot.CQDE != 0 || spot.ITUDE != 0 {
		t.Errorf("origin metadata = (%q, %d, %d), want empty", spot.ContDE, spot.CQDE, spot.ITUDE)
	}
	if spot.ContDX != "" {
		t.Errorf("ContDX = %q, want empty", spot.ContDX)
	}
}

// TestNormalizer_Normalize_RejectsMalformedSpot はパース不能な入力がMalformedSpotで拒否されることを検証する。
func TestNormalizer_Normalize_RejectsMalformedSpot(t *testing.T) {
	n := newTestNormalizer(t, time.Now())

	tests := []struct {
		name string
		raw  model.RawSpot
	}{
		{
			name: "non-numeric frequency",
			raw:  model.RawSpot{DE: "K8SMC", Frequency: "abc", DX: "OH2BH"},
		},
		{
			name: "zero frequency",
			raw:  model.RawSpot{DE: "K8SMC", Frequency: "0", DX: "OH2BH"},
		},
		{
			name: "negative frequency",
			raw:  model.RawSpot{DE: "K8SMC", Frequency: "-7040", DX: "OH2BH"},
		},
		{
			name: "frequency above 30GHz",
			raw:  model.RawSpot{DE: "K8SMC", Frequency: "31000000", DX: "OH2BH"},
		},
		{
			name: "empty origin callsign",
			raw:  model.RawSpot{DE: "", Frequency: "7040", DX: "OH2BH"},
		},
		{
			name: "empty dx callsign",
			raw:  model.RawSpot{DE: "K8SMC", Frequency: "7040", DX: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			if err == nil {
				t.Fatal("Normalize() error = nil, want MalformedSpot")
			}
			apiErr, ok := err.(*model.APIError)
			if !ok {
				t.Fatalf("error type = %T, want *model.APIError", err)
			}
			if apiErr.Code != model.ErrCodeMalformedSpot {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeMalformedSpot)
			}
		})
	}
}
