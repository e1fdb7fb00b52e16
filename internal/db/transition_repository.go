package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/region"
)

// TransitionRow is a stored region transition.
type TransitionRow struct {
	ID     int64
	region.Transition
}

// TransitionRepository stores region transitions.
type TransitionRepository struct {
	db *pgxpool.Pool
}

// NewTransitionRepository creates a new TransitionRepository.
func NewTransitionRepository(db *pgxpool.Pool) *TransitionRepository {
	return &TransitionRepository{db: db}
}

// Insert writes transitions in one COPY.
func (r *TransitionRepository) Insert(ctx context.Context, trs []region.Transition) error {
	if len(trs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(trs))
	for _, tr := range trs {
		rows = append(rows, []any{
			tr.Kind.String(), string(tr.Player), tr.RegionID, tr.RegionName, tr.World, tr.Reason, tr.At,
		})
	}

	_, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"region_transitions"},
		[]string{"kind", "player_id", "region_id", "region_name", "world", "reason", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying %d transitions: %w", len(trs), err)
	}
	return nil
}

// ListByPlayer returns the latest transitions of player, oldest first.
func (r *TransitionRepository) ListByPlayer(ctx context.Context, player model.PlayerID, limit int) ([]TransitionRow, error) {
	query := `
		SELECT id, kind, player_id, region_id, region_name, world, reason, occurred_at
		FROM (
			SELECT * FROM region_transitions
			WHERE player_id = $1
			ORDER BY id DESC
			LIMIT $2
		) t
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, string(player), limit)
	if err != nil {
		return nil, fmt.Errorf("querying transitions for %q: %w", player, err)
	}
	defer rows.Close()

	var out []TransitionRow
	for rows.Next() {
		var (
			row      TransitionRow
			kind     string
			playerID string
		)
		if err := rows.Scan(&row.ID, &kind, &playerID, &row.RegionID, &row.RegionName, &row.World, &row.Reason, &row.At); err != nil {
			return nil, fmt.Errorf("scanning transition row: %w", err)
		}
		row.Kind = parseKind(kind)
		row.Player = model.PlayerID(playerID)
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transition rows: %w", err)
	}
	return out, nil
}

// CountByRegion returns how many transitions of kind were stored for regionID.
func (r *TransitionRepository) CountByRegion(ctx context.Context, regionID string, kind region.Kind) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM region_transitions WHERE region_id = $1 AND kind = $2`,
		regionID, kind.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting transitions for region %q: %w", regionID, err)
	}
	return n, nil
}

func parseKind(s string) region.Kind {
	switch s {
	case region.KindEnter.String():
		return region.KindEnter
	case region.KindLeave.String():
		return region.KindLeave
	default:
		return 0
	}
}
