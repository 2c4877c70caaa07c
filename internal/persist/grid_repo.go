package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/tilesim/internal/grid"
)

// GridRepo stores stage tile arrays in save slots. Every save is a new
// grid_saves row; Load returns the newest one.
type GridRepo struct {
	db *DB
}

func NewGridRepo(db *DB) *GridRepo {
	return &GridRepo{db: db}
}

// Save writes rows as one save of slot/level/stage, bulk-copying the tiles
// inside the same transaction.
func (r *GridRepo) Save(ctx context.Context, slot string, level, stage int, rows [][]grid.Code) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return grid.ErrEmptyLevel
	}
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		var saveID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO grid_saves (slot, level, stage, rows, cols, checksum)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			slot, level, stage, len(rows), len(rows[0]), grid.Checksum(rows),
		).Scan(&saveID); err != nil {
			return fmt.Errorf("grid save insert: %w", err)
		}

		tiles := make([][]any, 0, len(rows)*len(rows[0]))
		for y, row := range rows {
			for x, code := range row {
				tiles = append(tiles, []any{saveID, y, x, code})
			}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"grid_tiles"},
			[]string{"save_id", "row_idx", "col_idx", "code"},
			pgx.CopyFromRows(tiles),
		); err != nil {
			return fmt.Errorf("grid save copy: %w", err)
		}
		return nil
	})
}

// Load returns the newest save of slot/level/stage. found is false when the
// slot has never been saved.
func (r *GridRepo) Load(ctx context.Context, slot string, level, stage int) (rows [][]grid.Code, found bool, err error) {
	var (
		saveID     int64
		nrow, ncol int
		sum        string
	)
	err = r.db.Pool.QueryRow(ctx,
		`SELECT id, rows, cols, checksum FROM grid_saves
		 WHERE slot = $1 AND level = $2 AND stage = $3
		 ORDER BY id DESC LIMIT 1`,
		slot, level, stage,
	).Scan(&saveID, &nrow, &ncol, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("grid load: %w", err)
	}

	rows = make([][]grid.Code, nrow)
	for i := range rows {
		rows[i] = make([]grid.Code, ncol)
	}
	q, err := r.db.Pool.Query(ctx,
		`SELECT row_idx, col_idx, code FROM grid_tiles WHERE save_id = $1`, saveID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("grid load tiles: %w", err)
	}
	defer q.Close()
	for q.Next() {
		var y, x, code int
		if err := q.Scan(&y, &x, &code); err != nil {
			return nil, false, err
		}
		if y < 0 || y >= nrow || x < 0 || x >= ncol {
			return nil, false, fmt.Errorf("grid load: tile (%d,%d) outside %dx%d", x, y, ncol, nrow)
		}
		rows[y][x] = code
	}
	if err := q.Err(); err != nil {
		return nil, false, err
	}
	if grid.Checksum(rows) != sum {
		return nil, false, grid.ErrChecksum
	}
	return rows, true, nil
}
