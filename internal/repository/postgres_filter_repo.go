package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/dxhub/internal/model"
)

// PostgresFilterRepo はPostgreSQLを使用したフィルタルールリポジトリ。
// トークン集合はスペース区切りのTEXT列として保存する。
type PostgresFilterRepo struct {
	db *sql.DB
}

// NewPostgresFilterRepo はPostgresFilterRepoを生成する。
func NewPostgresFilterRepo(db *sql.DB) *PostgresFilterRepo {
	return &PostgresFilterRepo{db: db}
}

// ListByCall は指定ユーザーの全フィルタルールをFilterRuleSetとして返す。
func (r *PostgresFilterRepo) ListByCall(ctx context.Context, call string) (model.FilterRuleSet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, disposition, tokens
		 FROM filter_rules WHERE call = $1`,
		call,
	)
	if err != nil {
		return nil, fmt.Errorf("フィルタルールの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ruleSet := make(model.FilterRuleSet)
	for rows.Next() {
		var category, disposition, tokens string
		if err := rows.Scan(&category, &disposition, &tokens); err != nil {
			return nil, fmt.Errorf("フィルタルールの読み取りに失敗しました: %w", err)
		}
		ruleSet[model.FilterCategory(category)] = model.FilterRule{
			Category:    model.FilterCategory(category),
			Disposition: model.Disposition(disposition),
			Tokens:      strings.Fields(tokens),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フィルタルールの走査に失敗しました: %w", err)
	}

	return ruleSet, nil
}

// Upsert はカテゴリのルールを冪等に登録する。既存ルールは上書きされる。
func (r *PostgresFilterRepo) Upsert(ctx context.Context, call string, rule model.FilterRule) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO filter_rules (call, category, disposition, tokens)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (call, category)
		 DO UPDATE SET disposition = $3, tokens = $4, updated_at = now()`,
		call, string(rule.Category), string(rule.Disposition),
		strings.Join(rule.Tokens, " "),
	)
	if err != nil {
		return fmt.Errorf("フィルタルールの登録に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定カテゴリのルールを削除する。
func (r *PostgresFilterRepo) Delete(ctx context.Context, call string, category model.FilterCategory) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM filter_rules WHERE call = $1 AND category = $2`,
		call, string(category),
	)
	if err != nil {
		return fmt.Errorf("フィルタルールの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteAll は指定ユーザーの全ルールを削除する。
func (r *PostgresFilterRepo) DeleteAll(ctx context.Context, call string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM filter_rules WHERE call = $1`,
		call,
	)
	if err != nil {
		return fmt.Errorf("フィルタルールの一括削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FilterRepository = (*PostgresFilterRepo)(nil)
