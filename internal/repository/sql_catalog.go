package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	position INTEGER PRIMARY KEY,
	label TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	price TEXT NOT NULL,
	unit TEXT NOT NULL,
	category TEXT NOT NULL,
	barcode TEXT NOT NULL DEFAULT '',
	icon TEXT,
	description TEXT,
	nutrition TEXT,
	origin TEXT
);
`

const selectProducts = `
SELECT label, name, price, unit, category, barcode, icon, description, nutrition, origin
FROM products
ORDER BY position`

// OpenCatalogDB opens and pings a catalog database for driver "sqlite3" or "postgres".
func OpenCatalogDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver == "sqlite3" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_busy_timeout=5000"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog database")
	}

	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping catalog database")
	}
	return db, nil
}

// LoadProducts reads the catalog table in position order. The result is
// meant to be handed to NewInMemoryProductRepository once at startup.
func LoadProducts(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, selectProducts)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var (
			p                                    models.Product
			price, unit, category                string
			icon, description, nutrition, origin sql.NullString
		)
		if err := rows.Scan(&p.Label, &p.Name, &price, &unit, &category, &p.Barcode,
			&icon, &description, &nutrition, &origin); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}

		amount, err := decimal.NewFromString(price)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidProduct, "%q has malformed price %q", p.Label, price)
		}
		p.Price = models.NewMoney(amount)
		p.Unit = models.Unit(unit)
		p.Category = models.Category(category)
		p.Icon = icon.String
		p.Description = description.String
		p.Nutrition = nutrition.String
		p.Origin = origin.String

		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}

	return products, nil
}

// MigrateSQLite creates the products table and seeds it with products when empty.
func MigrateSQLite(ctx context.Context, db *sql.DB, products []models.Product) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return errors.Wrap(err, "create products table")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return errors.Wrap(err, "count products")
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin seed")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (position, label, name, price, unit, category, barcode, icon, description, nutrition, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare seed")
	}
	defer stmt.Close()

	for i, p := range products {
		if _, err := stmt.ExecContext(ctx, i+1, p.Label, p.Name, p.Price.StringFixed(2), string(p.Unit),
			string(p.Category), p.Barcode, nullString(p.Icon), nullString(p.Description),
			nullString(p.Nutrition), nullString(p.Origin)); err != nil {
			return errors.Wrapf(err, "seed product %q", p.Label)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit seed")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
