package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/reconciler"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id           BIGSERIAL PRIMARY KEY,
	source       TEXT NOT NULL,
	product_id   TEXT NOT NULL,
	name         TEXT NOT NULL,
	price        DOUBLE PRECISION NOT NULL,
	old_price    DOUBLE PRECISION,
	discount     DOUBLE PRECISION,
	product_url  TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL,
	UNIQUE(source, product_id)
);

CREATE TABLE IF NOT EXISTS price_history (
	id          BIGSERIAL PRIMARY KEY,
	product_ref BIGINT NOT NULL REFERENCES products(id),
	price       DOUBLE PRECISION NOT NULL,
	old_price   DOUBLE PRECISION,
	discount    DOUBLE PRECISION,
	is_open     BOOLEAN NOT NULL DEFAULT TRUE,
	valid_from  TIMESTAMPTZ NOT NULL,
	valid_to    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_price_history_open
	ON price_history(product_ref) WHERE is_open;
`

type postgresStore struct {
	pool *pgxpool.Pool
}

func openPostgres(ctx context.Context, dsn string) (*postgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &StoreFailure{Op: "open", Err: err}
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, &StoreFailure{Op: "migrate", Err: err}
	}
	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *postgresStore) GetCurrent(ctx context.Context, source, productID string) (*models.Product, *models.PriceHistory, error) {
	var p models.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, source, product_id, name, price, old_price, discount,
		       product_url, image_url, created_at, updated_at, last_seen_at
		FROM products WHERE source = $1 AND product_id = $2`,
		source, productID,
	).Scan(&p.ID, &p.Source, &p.ProductID, &p.Name, &p.Price, &p.OldPrice,
		&p.Discount, &p.ProductURL, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &p.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &StoreFailure{Op: "get_current", Err: err}
	}

	var h models.PriceHistory
	err = s.pool.QueryRow(ctx, `
		SELECT id, product_ref, price, old_price, discount, is_open, valid_from, valid_to
		FROM price_history WHERE product_ref = $1 AND is_open`,
		p.ID,
	).Scan(&h.ID, &h.ProductRef, &h.Price, &h.OldPrice, &h.Discount, &h.IsOpen, &h.ValidFrom, &h.ValidTo)
	if errors.Is(err, pgx.ErrNoRows) {
		return &p, nil, nil
	}
	if err != nil {
		return nil, nil, &StoreFailure{Op: "get_current", Err: err}
	}
	return &p, &h, nil
}

func (s *postgresStore) Apply(ctx context.Context, source string, d reconciler.Decision) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &StoreFailure{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	r := d.Record
	now := r.ObservedAt

	switch d.Action {
	case reconciler.ActionCreate:
		var ref int64
		err := tx.QueryRow(ctx, `
			INSERT INTO products (source, product_id, name, price, old_price, discount,
				product_url, image_url, created_at, updated_at, last_seen_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
			source, r.ProductID, r.Name, r.Price, r.OldPrice, r.Discount,
			r.ProductURL, r.ImageURL, now, now, now).Scan(&ref)
		if err != nil {
			return &StoreFailure{Op: "create_product", Err: err}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO price_history (product_ref, price, old_price, discount, is_open, valid_from)
			VALUES ($1, $2, $3, $4, TRUE, $5)`,
			ref, r.Price, r.OldPrice, r.Discount, now); err != nil {
			return &StoreFailure{Op: "open_history", Err: err}
		}

	case reconciler.ActionNoChange:
		if _, err := tx.Exec(ctx, `
			UPDATE products SET name = $1, product_url = $2, image_url = $3,
				updated_at = $4, last_seen_at = $5
			WHERE id = $6`,
			r.Name, r.ProductURL, r.ImageURL, now, now, d.Product.ID); err != nil {
			return &StoreFailure{Op: "touch_product", Err: err}
		}

	case reconciler.ActionPriceChange:
		if _, err := tx.Exec(ctx, `
			UPDATE products SET name = $1, price = $2, old_price = $3, discount = $4,
				product_url = $5, image_url = $6, updated_at = $7, last_seen_at = $8
			WHERE id = $9`,
			r.Name, r.Price, r.OldPrice, r.Discount,
			r.ProductURL, r.ImageURL, now, now, d.Product.ID); err != nil {
			return &StoreFailure{Op: "update_product", Err: err}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE price_history SET is_open = FALSE, valid_to = $1
			WHERE product_ref = $2 AND is_open`,
			now, d.Product.ID); err != nil {
			return &StoreFailure{Op: "close_history", Err: err}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO price_history (product_ref, price, old_price, discount, is_open, valid_from)
			VALUES ($1, $2, $3, $4, TRUE, $5)`,
			d.Product.ID, r.Price, r.OldPrice, r.Discount, now); err != nil {
			return &StoreFailure{Op: "open_history", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &StoreFailure{Op: "commit", Err: err}
	}
	return nil
}

func (s *postgresStore) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, product_id, name, price, old_price, discount,
		       product_url, image_url, created_at, updated_at, last_seen_at
		FROM products ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, &StoreFailure{Op: "list_products", Err: err}
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Source, &p.ProductID, &p.Name, &p.Price,
			&p.OldPrice, &p.Discount, &p.ProductURL, &p.ImageURL,
			&p.CreatedAt, &p.UpdatedAt, &p.LastSeenAt); err != nil {
			return nil, &StoreFailure{Op: "list_products", Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *postgresStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, source, product_id, name, price, old_price, discount,
		       product_url, image_url, created_at, updated_at, last_seen_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Source, &p.ProductID, &p.Name, &p.Price, &p.OldPrice,
		&p.Discount, &p.ProductURL, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &p.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreFailure{Op: "get_product", Err: err}
	}
	return &p, nil
}

func (s *postgresStore) GetPriceHistory(ctx context.Context, productRef int64, limit int) ([]models.PriceHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_ref, price, old_price, discount, is_open, valid_from, valid_to
		FROM price_history WHERE product_ref = $1
		ORDER BY valid_from DESC LIMIT $2`,
		productRef, limit)
	if err != nil {
		return nil, &StoreFailure{Op: "get_history", Err: err}
	}
	defer rows.Close()

	var out []models.PriceHistory
	for rows.Next() {
		var h models.PriceHistory
		if err := rows.Scan(&h.ID, &h.ProductRef, &h.Price, &h.OldPrice, &h.Discount,
			&h.IsOpen, &h.ValidFrom, &h.ValidTo); err != nil {
			return nil, &StoreFailure{Op: "get_history", Err: err}
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
