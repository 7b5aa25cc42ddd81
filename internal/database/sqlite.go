package database

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"catalogo-precos/internal/models"
	"catalogo-precos/internal/reconciler"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	source       TEXT NOT NULL,
	product_id   TEXT NOT NULL,
	name         TEXT NOT NULL,
	price        REAL NOT NULL,
	old_price    REAL,
	discount     REAL,
	product_url  TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	last_seen_at TIMESTAMP NOT NULL,
	UNIQUE(source, product_id)
);

CREATE TABLE IF NOT EXISTS price_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	product_ref INTEGER NOT NULL REFERENCES products(id),
	price       REAL NOT NULL,
	old_price   REAL,
	discount    REAL,
	is_open     INTEGER NOT NULL DEFAULT 1,
	valid_from  TIMESTAMP NOT NULL,
	valid_to    TIMESTAMP
);

-- no máximo uma linha aberta por produto
CREATE UNIQUE INDEX IF NOT EXISTS idx_price_history_open
	ON price_history(product_ref) WHERE is_open = 1;
`

type sqliteStore struct {
	db *sql.DB
}

func openSQLite(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StoreFailure{Op: "open", Err: err}
	}
	// escritas concorrentes de workers serializam melhor com uma conexão só
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &StoreFailure{Op: "migrate", Err: err}
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) GetCurrent(ctx context.Context, source, productID string) (*models.Product, *models.PriceHistory, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, product_id, name, price, old_price, discount,
		       product_url, image_url, created_at, updated_at, last_seen_at
		FROM products WHERE source = ? AND product_id = ?`,
		source, productID,
	).Scan(&p.ID, &p.Source, &p.ProductID, &p.Name, &p.Price, &p.OldPrice,
		&p.Discount, &p.ProductURL, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &p.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &StoreFailure{Op: "get_current", Err: err}
	}

	var h models.PriceHistory
	err = s.db.QueryRowContext(ctx, `
		SELECT id, product_ref, price, old_price, discount, is_open, valid_from, valid_to
		FROM price_history WHERE product_ref = ? AND is_open = 1`,
		p.ID,
	).Scan(&h.ID, &h.ProductRef, &h.Price, &h.OldPrice, &h.Discount, &h.IsOpen, &h.ValidFrom, &h.ValidTo)
	if err == sql.ErrNoRows {
		return &p, nil, nil
	}
	if err != nil {
		return nil, nil, &StoreFailure{Op: "get_current", Err: err}
	}
	return &p, &h, nil
}

func (s *sqliteStore) Apply(ctx context.Context, source string, d reconciler.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreFailure{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	r := d.Record
	now := r.ObservedAt

	switch d.Action {
	case reconciler.ActionCreate:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO products (source, product_id, name, price, old_price, discount,
				product_url, image_url, created_at, updated_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			source, r.ProductID, r.Name, r.Price, r.OldPrice, r.Discount,
			r.ProductURL, r.ImageURL, now, now, now)
		if err != nil {
			return &StoreFailure{Op: "create_product", Err: err}
		}
		ref, err := res.LastInsertId()
		if err != nil {
			return &StoreFailure{Op: "create_product", Err: err}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO price_history (product_ref, price, old_price, discount, is_open, valid_from)
			VALUES (?, ?, ?, ?, 1, ?)`,
			ref, r.Price, r.OldPrice, r.Discount, now); err != nil {
			return &StoreFailure{Op: "open_history", Err: err}
		}

	case reconciler.ActionNoChange:
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET name = ?, product_url = ?, image_url = ?,
				updated_at = ?, last_seen_at = ?
			WHERE id = ?`,
			r.Name, r.ProductURL, r.ImageURL, now, now, d.Product.ID); err != nil {
			return &StoreFailure{Op: "touch_product", Err: err}
		}

	case reconciler.ActionPriceChange:
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET name = ?, price = ?, old_price = ?, discount = ?,
				product_url = ?, image_url = ?, updated_at = ?, last_seen_at = ?
			WHERE id = ?`,
			r.Name, r.Price, r.OldPrice, r.Discount,
			r.ProductURL, r.ImageURL, now, now, d.Product.ID); err != nil {
			return &StoreFailure{Op: "update_product", Err: err}
		}
		// fecha a linha vigente no mesmo instante em que a nova abre
		if _, err := tx.ExecContext(ctx, `
			UPDATE price_history SET is_open = 0, valid_to = ?
			WHERE product_ref = ? AND is_open = 1`,
			now, d.Product.ID); err != nil {
			return &StoreFailure{Op: "close_history", Err: err}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO price_history (product_ref, price, old_price, discount, is_open, valid_from)
			VALUES (?, ?, ?, ?, 1, ?)`,
			d.Product.ID, r.Price, r.OldPrice, r.Discount, now); err != nil {
			return &StoreFailure{Op: "open_history", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreFailure{Op: "commit", Err: err}
	}
	return nil
}

func (s *sqliteStore) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, product_id, name, price, old_price, discount,
		       product_url, image_url, created_at, updated_at, last_seen_at
		FROM products ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
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

func (s *sqliteStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, product_id, name, price, old_price, discount,
		       product_url, image_url, created_at, updated_at, last_seen_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Source, &p.ProductID, &p.Name, &p.Price, &p.OldPrice,
		&p.Discount, &p.ProductURL, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &p.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreFailure{Op: "get_product", Err: err}
	}
	return &p, nil
}

func (s *sqliteStore) GetPriceHistory(ctx context.Context, productRef int64, limit int) ([]models.PriceHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_ref, price, old_price, discount, is_open, valid_from, valid_to
		FROM price_history WHERE product_ref = ?
		ORDER BY valid_from DESC LIMIT ?`,
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
