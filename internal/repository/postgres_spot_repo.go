package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/dxhub/internal/model"
)

// PostgresSpotRepo はPostgreSQLを使用したスポットリポジトリ。
type PostgresSpotRepo struct {
	db *sql.DB
}

// NewPostgresSpotRepo はPostgresSpotRepoを生成する。
func NewPostgresSpotRepo(db *sql.DB) *PostgresSpotRepo {
	return &PostgresSpotRepo{db: db}
}

const spotColumns = `id, de, frequency, dx, message, cont_de, cont_dx,
	        itu_de, itu_dx, cq_de, cq_dx, mode, signal, band, time`

// Append はスポットを追記する。
func (r *PostgresSpotRepo) Append(ctx context.Context, spot *model.Spot) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dxspot (id, de, frequency, dx, message, cont_de, cont_dx,
		                     itu_de, itu_dx, cq_de, cq_dx, mode, signal, band, time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		spot.ID, spot.DE, spot.Frequency, spot.DX, nullString(spot.Comment),
		nullString(spot.ContDE), nullString(spot.ContDX),
		nullInt(spot.ITUDE), nullInt(spot.ITUDX),
		nullInt(spot.CQDE), nullInt(spot.CQDX),
		nullString(spot.Mode), nullIntPtr(spot.Signal),
		nullString(spot.Band), spot.Time,
	)
	if err != nil {
		return fmt.Errorf("スポットの追記に失敗しました: %w", err)
	}
	return nil
}

// ListRecent は直近のスポットをlimit件返す。
func (r *PostgresSpotRepo) ListRecent(ctx context.Context, limit int) ([]*model.Spot, error) {
	return r.list(ctx,
		`SELECT `+spotColumns+` FROM dxspot
		 ORDER BY time DESC LIMIT $1`,
		limit)
}

// ListByDE は発信元コールサインが一致するスポットを返す。
func (r *PostgresSpotRepo) ListByDE(ctx context.Context, call string, limit int) ([]*model.Spot, error) {
	return r.list(ctx,
		`SELECT `+spotColumns+` FROM dxspot
		 WHERE de = $2
		 ORDER BY time DESC LIMIT $1`,
		limit, call)
}

// ListByDX はスポットされたDX局のコールサインが一致するスポットを返す。
func (r *PostgresSpotRepo) ListByDX(ctx context.Context, call string, limit int) ([]*model.Spot, error) {
	return r.list(ctx,
		`SELECT `+spotColumns+` FROM dxspot
		 WHERE dx = $2
		 ORDER BY time DESC LIMIT $1`,
		limit, call)
}

// ListByBand は指定バンドのスポットを返す。
func (r *PostgresSpotRepo) ListByBand(ctx context.Context, band string, limit int) ([]*model.Spot, error) {
	return r.list(ctx,
		`SELECT `+spotColumns+` FROM dxspot
		 WHERE band = $2
		 ORDER BY time DESC LIMIT $1`,
		limit, band)
}

// ListByFreqRange は周波数が[low, high]に含まれるスポットを返す。
func (r *PostgresSpotRepo) ListByFreqRange(ctx context.Context, low, high float64, limit int) ([]*model.Spot, error) {
	return r.list(ctx,
		`SELECT `+spotColumns+` FROM dxspot
		 WHERE frequency >= $2 AND frequency <= $3
		 ORDER BY time DESC LIMIT $1`,
		limit, low, high)
}

// ListByPrefix は発信元コールサインが指定プレフィックスで始まるスポットを返す。
func (r *PostgresSpotRepo) ListByPrefix(ctx context.Context, prefix string, limit int) ([]*model.Spot, error) {
	return r.list(ctx,
		`SELECT `+spotColumns+` FROM dxspot
		 WHERE de LIKE $2 || '%'
		 ORDER BY time DESC LIMIT $1`,
		limit, prefix)
}

// ListByComment はコメントに部分文字列を含むスポットを返す。大文字小文字は区別しない。
func (r *PostgresSpotRepo) ListByComment(ctx context.Context, substr string, limit int) ([]*model.Spot, error) {
	return r.list(ctx,
		`SELECT `+spotColumns+` FROM dxspot
		 WHERE message ILIKE '%' || $2 || '%'
		 ORDER BY time DESC LIMIT $1`,
		limit, substr)
}

// DeleteOlderThan は指定時刻より古いスポットを削除し、削除件数を返す。
func (r *PostgresSpotRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM dxspot WHERE time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("古いスポットの削除に失敗しました: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}

// list は検索クエリを実行してスポットのスライスに変換する共通処理。
func (r *PostgresSpotRepo) list(ctx context.Context, query string, args ...any) ([]*model.Spot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("スポットの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var spots []*model.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, spot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スポットの走査に失敗しました: %w", err)
	}

	return spots, nil
}

func scanSpot(rows *sql.Rows) (*model.Spot, error) {
	spot := &model.Spot{}
	var message, contDE, contDX, mode, band sql.NullString
	var ituDE, ituDX, cqDE, cqDX, signal sql.NullInt64

	if err := rows.Scan(
		&spot.ID, &spot.DE, &spot.Frequency, &spot.DX, &message,
		&contDE, &contDX, &ituDE, &ituDX, &cqDE, &cqDX,
		&mode, &signal, &band, &spot.Time,
	); err != nil {
		return nil, fmt.Errorf("スポットの読み取りに失敗しました: %w", err)
	}

	spot.Comment = nullStringValue(message)
	spot.ContDE = nullStringValue(contDE)
	spot.ContDX = nullStringValue(contDX)
	spot.ITUDE = int(ituDE.Int64)
	spot.ITUDX = int(ituDX.Int64)
	spot.CQDE = int(cqDE.Int64)
	spot.CQDX = int(cqDX.Int64)
	spot.Mode = nullStringValue(mode)
	spot.Band = nullStringValue(band)
	if signal.Valid {
		v := int(signal.Int64)
		spot.Signal = &v
	}

	return spot, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullInt はゼロ値（未解決ゾーン）をNULLとして保存するための変換。
func nullInt(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

// nullIntPtr はnilポインタをNULLとして保存するための変換。
func nullIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// compile-time interface check
var _ SpotRepository = (*PostgresSpotRepo)(nil)
