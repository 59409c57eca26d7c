package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/dxhub/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByCall は指定コールサインのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByCall(ctx context.Context, call string) (*model.User, error) {
	user := &model.User{}

	err := r.db.QueryRowContext(ctx,
		`SELECT call, spots_enabled, ann_enabled, line_width, created_at, updated_at
		 FROM users WHERE call = $1`,
		call,
	).Scan(
		&user.Call, &user.SpotsEnabled, &user.AnnEnabled, &user.LineWidth,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (call, spots_enabled, ann_enabled, line_width, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.Call, user.SpotsEnabled, user.AnnEnabled, user.LineWidth,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateSettings はユーザーの配信設定を更新する。
func (r *PostgresUserRepo) UpdateSettings(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		    spots_enabled = $2, ann_enabled = $3, line_width = $4, updated_at = now()
		 WHERE call = $1`,
		user.Call, user.SpotsEnabled, user.AnnEnabled, user.LineWidth,
	)
	if err != nil {
		return fmt.Errorf("ユーザー設定の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
