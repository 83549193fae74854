package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relawanns/regworker/internal/observability"
)

var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepo reads the event_settings key-value table owned by the
// admin bot. The worker only ever reads from it.
type SettingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSettingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *SettingsRepo {
	return &SettingsRepo{pool: pool, prom: prom}
}

func (repo *SettingsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := repo.observe("settings.get", func() error {
		return repo.pool.QueryRow(ctx, `
		SELECT value FROM event_settings
		WHERE key = $1
		LIMIT 1
	`, key).Scan(&value)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSettingNotFound
		}

		return "", err
	}

	return value, nil
}
