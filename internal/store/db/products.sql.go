package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const productColumns = `id, name, price, available, created_at, updated_at`

const create = `-- name: Create :one
INSERT INTO products (name, price)
VALUES ($1, $2)
RETURNING ` + productColumns

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Product, error) {
	row := q.db.QueryRow(ctx, create, arg.Name, arg.Price)
	return scanProduct(row)
}

const countAvailable = `-- name: CountAvailable :one
SELECT count(*) FROM products WHERE available = TRUE`

func (q *Queries) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countAvailable).Scan(&count)
	return count, err
}

const findPage = `-- name: FindPage :many
SELECT ` + productColumns + `
FROM products
WHERE available = TRUE
ORDER BY id
LIMIT $1 OFFSET $2`

type FindPageParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) FindPage(ctx context.Context, arg FindPageParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, findPage, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

const findByID = `-- name: FindByID :one
SELECT ` + productColumns + `
FROM products
WHERE id = $1`

func (q *Queries) FindByID(ctx context.Context, id int64) (Product, error) {
	row := q.db.QueryRow(ctx, findByID, id)
	return scanProduct(row)
}

const findByIDs = `-- name: FindByIDs :many
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::bigint[])
ORDER BY id`

func (q *Queries) FindByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	rows, err := q.db.Query(ctx, findByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

const replaceFields = `-- name: ReplaceFields :one
UPDATE products
SET name       = COALESCE($2, name),
    price      = COALESCE($3, price),
    available  = COALESCE($4, available),
    updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

func (q *Queries) ReplaceFields(ctx context.Context, id int64, patch Patch) (Product, error) {
	row := q.db.QueryRow(ctx, replaceFields, id, patch.Name, patch.Price, patch.Available)
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Available, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
}
