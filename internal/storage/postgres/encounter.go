package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// ErrEncounterNotFound is returned when an encounter lookup yields no results.
var ErrEncounterNotFound = errors.New("encounter not found")

// ErrEncounterExists is returned when an encounter ID is recorded twice.
var ErrEncounterExists = errors.New("encounter already recorded")

// EncounterRepository journals finished encounters. It implements
// combat.Recorder.
type EncounterRepository struct {
	db *pgxpool.Pool
}

var _ combat.Recorder = (*EncounterRepository)(nil)

// NewEncounterRepository creates an EncounterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEncounterRepository(db *pgxpool.Pool) *EncounterRepository {
	return &EncounterRepository{db: db}
}

// Record stores sum and its per-character spoils in one transaction.
//
// Precondition: sum.ID must be a UUID string.
// Postcondition: Returns ErrEncounterExists if sum.ID is already recorded.
func (r *EncounterRepository) Record(ctx context.Context, sum combat.Summary) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO encounters (id, clearing_id, rounds, deaths, fled, started_at, ended_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sum.ID, sum.ClearingID, sum.Rounds, nonNil(sum.Deaths), nonNil(sum.Fled), sum.StartedAt, sum.EndedAt,
		); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, id := range sortedKeys(sum.Spoils) {
			sp := sum.Spoils[id]
			batch.Queue(
				`INSERT INTO encounter_spoils (encounter_id, character_id, fame, notoriety, gold)
				 VALUES ($1, $2, $3, $4, $5)`,
				sum.ID, id, sp.Fame, sp.Notoriety, sp.Gold,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrEncounterExists
		}
		return fmt.Errorf("recording encounter %s: %w", sum.ID, err)
	}
	return nil
}

// Get retrieves the encounter with the given ID.
//
// Postcondition: Returns ErrEncounterNotFound if no such encounter exists.
func (r *EncounterRepository) Get(ctx context.Context, id string) (combat.Summary, error) {
	var sum combat.Summary
	err := r.db.QueryRow(ctx,
		`SELECT id::text, clearing_id, rounds, deaths, fled, started_at, ended_at
		 FROM encounters WHERE id = $1`,
		id,
	).Scan(&sum.ID, &sum.ClearingID, &sum.Rounds, &sum.Deaths, &sum.Fled, &sum.StartedAt, &sum.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return combat.Summary{}, ErrEncounterNotFound
		}
		return combat.Summary{}, fmt.Errorf("querying encounter %s: %w", id, err)
	}
	spoils, err := r.spoils(ctx, []string{sum.ID})
	if err != nil {
		return combat.Summary{}, err
	}
	sum.Spoils = spoils[sum.ID]
	return sum, nil
}

// ListByClearing returns up to limit encounters fought in clearingID, most
// recently ended first.
//
// Precondition: limit > 0.
func (r *EncounterRepository) ListByClearing(ctx context.Context, clearingID string, limit int) ([]combat.Summary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id::text, clearing_id, rounds, deaths, fled, started_at, ended_at
		 FROM encounters WHERE clearing_id = $1
		 ORDER BY ended_at DESC, id
		 LIMIT $2`,
		clearingID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing encounters in %s: %w", clearingID, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (combat.Summary, error) {
		var s combat.Summary
		err := row.Scan(&s.ID, &s.ClearingID, &s.Rounds, &s.Deaths, &s.Fled, &s.StartedAt, &s.EndedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning encounters in %s: %w", clearingID, err)
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]string, len(out))
	for i, s := range out {
		ids[i] = s.ID
	}
	spoils, err := r.spoils(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Spoils = spoils[out[i].ID]
	}
	return out, nil
}

func (r *EncounterRepository) spoils(ctx context.Context, ids []string) (map[string]map[string]combat.Spoils, error) {
	rows, err := r.db.Query(ctx,
		`SELECT encounter_id::text, character_id, fame, notoriety, gold
		 FROM encounter_spoils WHERE encounter_id = ANY($1::uuid[])`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("querying spoils: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]combat.Spoils, len(ids))
	for _, id := range ids {
		out[id] = make(map[string]combat.Spoils)
	}
	for rows.Next() {
		var encID, charID string
		var sp combat.Spoils
		if err := rows.Scan(&encID, &charID, &sp.Fame, &sp.Notoriety, &sp.Gold); err != nil {
			return nil, fmt.Errorf("scanning spoils: %w", err)
		}
		out[encID][charID] = sp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spoils: %w", err)
	}
	return out, nil
}

func sortedKeys(m map[string]combat.Spoils) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	return hasSQLState(err, "23505")
}

// hasSQLState reports whether err carries the given PostgreSQL SQLSTATE.
func hasSQLState(err error, code string) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}
