package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relawanns/regworker/internal/domain/registration"
	"github.com/relawanns/regworker/internal/observability"
)

type RegistrationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RegistrationsRepo {
	return &RegistrationsRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *RegistrationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *RegistrationsRepo) GetByID(ctx context.Context, id int64) (reg registration.Registration, err error) {
	err = repo.observe("registrations.get_by_id", func() error {
		return repo.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, age, city,
		       instagram_username, participation_history, vest_size,
		       payment_proof_url, tiktok_proof_url, instagram_proof_url,
		       created_at
		FROM registrations
		WHERE id = $1
	`, id).Scan(
			&reg.ID, &reg.Name, &reg.Email, &reg.Phone, &reg.Age, &reg.City,
			&reg.InstagramUsername, &reg.ParticipationHistory, &reg.VestSize,
			&reg.PaymentProofURL, &reg.TiktokProofURL, &reg.InstagramProofURL,
			&reg.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = registration.ErrNotFound
		}

		return
	}

	return
}

// SetProofURLs writes all three durable URLs in a single UPDATE so a
// partially-enriched row is never visible.
func (repo *RegistrationsRepo) SetProofURLs(ctx context.Context, id int64, paymentURL, tiktokURL, instagramURL string) error {
	var err error

	err = repo.observe("registrations.set_proof_urls", func() error {
		tag, e := repo.pool.Exec(ctx, `
		UPDATE registrations
		SET payment_proof_url = $2,
		    tiktok_proof_url = $3,
		    instagram_proof_url = $4
		WHERE id = $1
	`, id, paymentURL, tiktokURL, instagramURL)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			return registration.ErrNotFound
		}
		return nil
	})

	return err
}

func (repo *RegistrationsRepo) CountAll(ctx context.Context) (int, error) {
	var count int

	err := repo.observe("registrations.count_all", func() error {
		return repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&count)
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}
