package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// lockPosters reads and row-locks every poster in ids. Rows are locked in id
// order so concurrent checkouts over the same posters cannot deadlock. Missing
// ids are simply absent from the result.
func lockPosters(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]Poster, error) {
	rows, err := tx.Query(ctx, `SELECT id, title, price, stock FROM posters
                              WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, persist("lock posters", err)
	}
	defer rows.Close()

	out := make(map[int64]Poster, len(ids))
	for rows.Next() {
		var p Poster
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Stock); err != nil {
			return nil, persist("scan poster", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, persist("lock posters", err)
	}
	return out, nil
}

// checkStock validates every poster before anything is written, reporting
// the first failing poster in request order.
func checkStock(d demand, posters map[int64]Poster) error {
	for _, id := range d.order {
		p, ok := posters[id]
		if !ok {
			return &ItemNotFoundError{PosterID: id}
		}
		if p.Stock < d.qty[id] {
			return &InsufficientStockError{PosterID: id, Title: p.Title, Available: p.Stock, Requested: d.qty[id]}
		}
	}
	return nil
}

func decrementStock(ctx context.Context, tx pgx.Tx, d demand, posters map[int64]Poster) error {
	for _, id := range d.sorted {
		qty := d.qty[id]
		ct, err := tx.Exec(ctx, `UPDATE posters SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, id, qty)
		if err != nil {
			return persist("decrement stock", err)
		}
		if ct.RowsAffected() != 1 {
			p := posters[id]
			return &InsufficientStockError{PosterID: id, Title: p.Title, Available: p.Stock, Requested: qty}
		}
	}
	return nil
}
