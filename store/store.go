package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"placement-engine/models"
	"placement-engine/placement"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("not found")

// DB is the subset of *pgxpool.Pool the store uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store persists placement runs and fetched batted balls
type Store struct {
	db DB
}

// Run is one persisted optimization
type Run struct {
	ID         uuid.UUID              `json:"run_id"`
	Player     string                 `json:"player"`
	Handedness models.Handedness      `json:"handedness"`
	Mode       models.Mode            `json:"mode"`
	Config     placement.Config       `json:"config"`
	Result     models.PlacementResult `json:"result"`
	BallCount  int                    `json:"ball_count"`
	CreatedAt  time.Time              `json:"created_at"`

	// Balls are the plotted points; only those with coordinates are kept
	Balls []models.BattedBall `json:"-"`
}

// PlayerHands lists the batter sides stored for a player
type PlayerHands struct {
	Player string              `json:"player"`
	Hands  []models.Handedness `json:"hands"`
}

var battedBallColumns = []string{
	"player_id", "player", "handedness", "exit_velocity_mph", "launch_angle_deg",
	"spray_angle_deg", "hangtime_s", "outcome", "observed_at",
}

//go:embed schema.sql
var schema string

func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tables when they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SaveRun inserts a run, assigning an id and timestamp when missing
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	configJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	ballsJSON, err := json.Marshal(plottable(run.Balls))
	if err != nil {
		return fmt.Errorf("failed to marshal balls: %w", err)
	}

	query := `
		INSERT INTO placement_runs (
			id, player, handedness, mode, config, result, ball_count, created_at, balls
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.Exec(ctx, query,
		run.ID.String(),
		run.Player,
		string(run.Handedness),
		string(run.Mode),
		configJSON,
		resultJSON,
		run.BallCount,
		run.CreatedAt,
		ballsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to store placement run: %w", err)
	}
	return nil
}

// GetRun loads a run by id
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id::text, player, handedness, mode, config, result, ball_count, created_at
		FROM placement_runs
		WHERE id = $1
	`

	run, err := scanRun(s.db.QueryRow(ctx, query, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("placement run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load placement run: %w", err)
	}
	return run, nil
}

// GetRunBalls loads the points stored with a run
func (s *Store) GetRunBalls(ctx context.Context, id uuid.UUID) ([]models.BattedBall, error) {
	var ballsJSON []byte
	err := s.db.QueryRow(ctx, `SELECT balls FROM placement_runs WHERE id = $1`, id.String()).Scan(&ballsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("placement run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run balls: %w", err)
	}

	balls := []models.BattedBall{}
	if len(ballsJSON) == 0 {
		return balls, nil
	}
	if err := json.Unmarshal(ballsJSON, &balls); err != nil {
		return nil, fmt.Errorf("failed to decode balls: %w", err)
	}
	return balls, nil
}

func plottable(balls []models.BattedBall) []models.BattedBall {
	out := make([]models.BattedBall, 0, len(balls))
	for _, b := range balls {
		if b.HasCoordinates() {
			out = append(out, b)
		}
	}
	return out
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id::text, player, handedness, mode, config, result, ball_count, created_at
		FROM placement_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list placement runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan placement run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		id, hand, mode         string
		configJSON, resultJSON []byte
		run                    Run
	)
	if err := row.Scan(&id, &run.Player, &hand, &mode, &configJSON, &resultJSON, &run.BallCount, &run.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Handedness = models.Handedness(hand)
	run.Mode = models.Mode(mode)

	if err := json.Unmarshal(configJSON, &run.Config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &run, nil
}

// ListPlayers returns every stored player with the sides on record
func (s *Store) ListPlayers(ctx context.Context) ([]PlayerHands, error) {
	query := `
		SELECT DISTINCT player, handedness
		FROM batted_balls
		WHERE player <> '' AND handedness IN ('L', 'R')
		ORDER BY player, handedness
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := []PlayerHands{}
	for rows.Next() {
		var player, hand string
		if err := rows.Scan(&player, &hand); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		if n := len(players); n > 0 && players[n-1].Player == player {
			players[n-1].Hands = append(players[n-1].Hands, models.Handedness(hand))
			continue
		}
		players = append(players, PlayerHands{Player: player, Hands: []models.Handedness{models.Handedness(hand)}})
	}
	return players, rows.Err()
}

// LoadBattedBalls returns the stored measurements for one player side,
// oldest first
func (s *Store) LoadBattedBalls(ctx context.Context, player string, hand models.Handedness) ([]models.Measurement, error) {
	query := `
		SELECT player_id, player, handedness, exit_velocity_mph, launch_angle_deg,
		       spray_angle_deg, hangtime_s, outcome, observed_at
		FROM batted_balls
		WHERE player = $1 AND handedness = $2
		ORDER BY observed_at NULLS LAST, id
	`

	rows, err := s.db.Query(ctx, query, player, string(hand))
	if err != nil {
		return nil, fmt.Errorf("failed to load batted balls: %w", err)
	}
	defer rows.Close()

	ms := []models.Measurement{}
	for rows.Next() {
		var (
			m        models.Measurement
			handStr  string
			observed *time.Time
		)
		if err := rows.Scan(&m.PlayerID, &m.Player, &handStr, &m.ExitVelocityMPH, &m.LaunchAngleDeg,
			&m.SprayAngleDeg, &m.HangTime, &m.Outcome, &observed); err != nil {
			return nil, fmt.Errorf("failed to scan batted ball: %w", err)
		}
		m.Handedness = models.Handedness(handStr)
		m.Timestamp = observed
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

// SaveBattedBalls bulk inserts measurements with COPY
func (s *Store) SaveBattedBalls(ctx context.Context, ms []models.Measurement) (int64, error) {
	if len(ms) == 0 {
		return 0, nil
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"batted_balls"}, battedBallColumns,
		pgx.CopyFromSlice(len(ms), func(i int) ([]any, error) {
			m := ms[i]
			return []any{
				m.PlayerID, m.Player, string(m.Handedness), m.ExitVelocityMPH, m.LaunchAngleDeg,
				m.SprayAngleDeg, m.HangTime, m.Outcome, m.Timestamp,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to copy batted balls: %w", err)
	}
	return n, nil
}
