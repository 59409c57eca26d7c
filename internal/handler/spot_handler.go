package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/dxhub/internal/model"
	"github.com/hitoshi/dxhub/internal/spot"
)

// SpotIngestInterface はスポットハンドラーが必要とするサービスインターフェース。
type SpotIngestInterface interface {
	// Ingest は生スポットを正規化して保存し、配信する。
	Ingest(ctx context.Context, raw model.RawSpot) (*model.Spot, error)
}

// AnnouncementPublisherInterface はアナウンスの配信インターフェース。
type AnnouncementPublisherInterface interface {
	PublishAnnouncement(ann *model.Announcement)
}

// SpotHandler はスポット・アナウンス取り込みのHTTPハンドラー。
// 中継ネットワークレイヤーからの入力境界。
type SpotHandler struct {
	ingest    SpotIngestInterface
	publisher AnnouncementPublisherInterface
}

// NewSpotHandler はSpotHandlerを生成する。
func NewSpotHandler(ingest SpotIngestInterface, publisher AnnouncementPublisherInterface) *SpotHandler {
	return &SpotHandler{ingest: ingest, publisher: publisher}
}

// ingestSpotRequest はJSON形式の取り込みリクエストボディ。
type ingestSpotRequest struct {
	DE        string     `json:"de"`
	Frequency string     `json:"frequency"`
	DX        string     `json:"dx"`
	Comment   string     `json:"comment"`
	Time      *time.Time `json:"time,omitempty"`
	Signal    *int       `json:"signal,omitempty"`
}

// spotResponse は取り込み結果のレスポンスボディ。
type spotResponse struct {
	ID        string     `json:"id"`
	DE        string     `json:"de"`
	Frequency float64    `json:"frequency"`
	DX        string     `json:"dx"`
	Comment   string     `json:"comment,omitempty"`
	ContDE    string     `json:"cont_de,omitempty"`
	ContDX    string     `json:"cont_dx,omitempty"`
	ITUDE     int        `json:"itu_de,omitempty"`
	ITUDX     int        `json:"itu_dx,omitempty"`
	CQDE      int        `json:"cq_de,omitempty"`
	CQDX      int        `json:"cq_dx,omitempty"`
	Mode      string     `json:"mode,omitempty"`
	Signal    *int       `json:"signal,omitempty"`
	Band      string     `json:"band,omitempty"`
	Time      time.Time  `json:"time"`
}

// IngestSpot はスポットを取り込む。
// POST /api/spots
// Content-Typeがtext/plainの場合はクラシックなDX行としてパースし、
// それ以外はJSONボディとして受理する。
func (h *SpotHandler) IngestSpot(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	ingested, err := h.ingest.Ingest(r.Context(), raw)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toSpotResponse(ingested))
}

// parseRequest はリクエストボディをRawSpotに変換する。失敗時はレスポンスを書き込む。
func (h *SpotHandler) parseRequest(w http.ResponseWriter, r *http.Request) (model.RawSpot, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedSpotError("ボディを読み取れません"))
			return model.RawSpot{}, false
		}
		raw, ok := spot.ParseDXLine(string(body), time.Now())
		if !ok {
			writeAPIErrorResponse(w, http.StatusUnprocessableEntity, model.NewMalformedSpotError("DX行の形式が不正です"))
			return model.RawSpot{}, false
		}
		return raw, true
	}

	var req ingestSpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedSpotError("JSONボディが不正です"))
		return model.RawSpot{}, false
	}

	return model.RawSpot{
		DE:        req.DE,
		Frequency: req.Frequency,
		DX:        req.DX,
		Comment:   req.Comment,
		Time:      req.Time,
		Signal:    req.Signal,
	}, true
}

// announcementRequest はアナウンス取り込みのリクエストボディ。
type announcementRequest struct {
	Call string `json:"call"`
	Kind string `json:"kind"` // "ANN" または "WX"
	Text string `json:"text"`
}

// IngestAnnouncement はアナウンスを受理して接続中セッションへ配信する。
// POST /api/announcements
// アナウンスは永続化されない。
func (h *SpotHandler) IngestAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedSpotError("JSONボディが不正です"))
		return
	}

	call := strings.ToUpper(strings.TrimSpace(req.Call))
	if call == "" || strings.TrimSpace(req.Text) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMalformedSpotError("コールサインと本文は必須です"))
		return
	}

	kind := model.AnnouncementGeneral
	if strings.EqualFold(strings.TrimSpace(req.Kind), string(model.AnnouncementWeather)) {
		kind = model.AnnouncementWeather
	}

	h.publisher.PublishAnnouncement(&model.Announcement{
		ID:   uuid.NewString(),
		Call: call,
		Kind: kind,
		Text: strings.TrimSpace(req.Text),
		Time: time.Now().UTC(),
	})

	w.WriteHeader(http.StatusAccepted)
}

// toSpotResponse はドメインのSpotをレスポンス型に変換する。
func toSpotResponse(s *model.Spot) spotResponse {
	return spotResponse{
		ID:        s.ID,
		DE:        s.DE,
		Frequency: s.Frequency,
		DX:        s.DX,
		Comment:   s.Comment,
		ContDE:    s.ContDE,
		ContDX:    s.ContDX,
		ITUDE:     s.ITUDE,
		ITUDX:     s.ITUDX,
		CQDE:      s.CQDE,
		CQDX:      s.CQDX,
		Mode:      s.Mode,
		Signal:    s.Signal,
		Band:      s.Band,
		Time:      s.Time,
	}
}
