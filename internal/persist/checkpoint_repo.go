package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/tilesim/internal/grid"
)

// CheckpointRepo 每個存檔槽保存一個存檔點。
type CheckpointRepo struct {
	db *DB
}

func NewCheckpointRepo(db *DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

// Save replaces the slot's checkpoint and item counts (upsert + delete/insert).
func (r *CheckpointRepo) Save(ctx context.Context, slot string, cp Checkpoint) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO checkpoints (slot, level, stage, cell_x, cell_y, lives, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())
			 ON CONFLICT (slot) DO UPDATE SET
			   level = EXCLUDED.level, stage = EXCLUDED.stage,
			   cell_x = EXCLUDED.cell_x, cell_y = EXCLUDED.cell_y,
			   lives = EXCLUDED.lives, updated_at = now()`,
			slot, cp.Level, cp.Stage, cp.Cell.X, cp.Cell.Y, cp.Lives,
		); err != nil {
			return fmt.Errorf("checkpoint upsert: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM checkpoint_items WHERE slot = $1`, slot); err != nil {
			return fmt.Errorf("checkpoint clear items: %w", err)
		}
		for code, count := range cp.Items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO checkpoint_items (slot, code, count) VALUES ($1, $2, $3)`,
				slot, code, count,
			); err != nil {
				return fmt.Errorf("checkpoint insert item: %w", err)
			}
		}
		return nil
	})
}

// Load 讀取存檔槽的存檔點；新存檔槽回傳 found=false。
func (r *CheckpointRepo) Load(ctx context.Context, slot string) (Checkpoint, bool, error) {
	var cp Checkpoint
	err := r.db.Pool.QueryRow(ctx,
		`SELECT level, stage, cell_x, cell_y, lives FROM checkpoints WHERE slot = $1`, slot,
	).Scan(&cp.Level, &cp.Stage, &cp.Cell.X, &cp.Cell.Y, &cp.Lives)
	if errors.Is(err, pgx.ErrNoRows) {
		return cp, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("checkpoint load: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT code, count FROM checkpoint_items WHERE slot = $1`, slot,
	)
	if err != nil {
		return cp, false, fmt.Errorf("checkpoint load items: %w", err)
	}
	defer rows.Close()
	cp.Items = make(map[grid.Code]int)
	for rows.Next() {
		var code, count int
		if err := rows.Scan(&code, &count); err != nil {
			return cp, false, err
		}
		cp.Items[code] = count
	}
	return cp, true, rows.Err()
}
