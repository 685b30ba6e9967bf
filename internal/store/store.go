// Package store records episodes and their steps in SQLite. The schema is
// managed by migrations embedded in the binary.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cxd309/merge-engine/internal/config"
	"github.com/cxd309/merge-engine/internal/engine"
	"github.com/cxd309/merge-engine/internal/monitoring"
)

// ErrNotFound is returned when an episode does not exist.
var ErrNotFound = errors.New("episode not found")

// Store is an open episode database.
type Store struct {
	db *sql.DB
}

// Episode is a stored episode header.
type Episode struct {
	ID        string
	Seed      uint64
	Config    *config.EnvironmentConfig // nil when the defaults were used
	Return    *float64                  // nil until the episode is finished
	CreatedAt time.Time
}

// Step is one stored step of an episode.
type Step struct {
	Step     int
	Action   int
	Reward   float64
	Terminal bool
	EgoAcc   float64
	Features []float64
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases consistent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	monitoring.Logf("store: opened %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// CreateEpisode inserts a new episode and returns its id. An empty id is
// replaced by a fresh UUID.
func (s *Store) CreateEpisode(id string, seed uint64, cfg *config.EnvironmentConfig) (string, error) {
	return createEpisode(s.db, id, seed, cfg)
}

func createEpisode(x execer, id string, seed uint64, cfg *config.EnvironmentConfig) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	// the seed is stored bit for bit as a signed integer
	_, err = x.Exec(
		`INSERT INTO episodes (episode_id, seed, config_json, created_at) VALUES (?, ?, ?, ?)`,
		id, int64(seed), string(cfgJSON), time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting episode %s: %w", id, err)
	}
	return id, nil
}

// RecordStep appends a step to an existing episode.
func (s *Store) RecordStep(episodeID string, st Step) error {
	return recordStep(s.db, episodeID, st)
}

func recordStep(x execer, episodeID string, st Step) error {
	featJSON, err := json.Marshal(st.Features)
	if err != nil {
		return fmt.Errorf("encoding features: %w", err)
	}
	_, err = x.Exec(
		`INSERT INTO steps (episode_id, step, action, reward, terminal, ego_acc, features_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		episodeID, st.Step, st.Action, st.Reward, st.Terminal, st.EgoAcc, string(featJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting step %d of episode %s: %w", st.Step, episodeID, err)
	}
	return nil
}

// SetReturn records the discounted return of a finished episode.
func (s *Store) SetReturn(episodeID string, ret float64) error {
	res, err := s.db.Exec(`UPDATE episodes SET discounted_return = ? WHERE episode_id = ?`, ret, episodeID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, episodeID)
	}
	return nil
}

// RecordRollout stores a whole rollout in one transaction.
func (s *Store) RecordRollout(log engine.RolloutLog, cfg *config.EnvironmentConfig) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := createEpisode(tx, log.EpisodeID, log.Seed, cfg); err != nil {
		return err
	}
	for _, row := range log.Steps {
		st := Step{
			Step:     row.Step,
			Action:   row.Action,
			Reward:   row.Reward,
			Terminal: row.Terminal,
			EgoAcc:   row.EgoAcc,
			Features: row.Features,
		}
		if err := recordStep(tx, log.EpisodeID, st); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE episodes SET discounted_return = ? WHERE episode_id = ?`, log.Return, log.EpisodeID); err != nil {
		return err
	}
	return tx.Commit()
}

// Episode loads an episode header.
func (s *Store) Episode(id string) (Episode, error) {
	var (
		ep      Episode
		seed    int64
		cfgJSON string
		ret     sql.NullFloat64
		created int64
	)
	err := s.db.QueryRow(
		`SELECT episode_id, seed, config_json, discounted_return, created_at FROM episodes WHERE episode_id = ?`, id,
	).Scan(&ep.ID, &seed, &cfgJSON, &ret, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Episode{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &ep.Config); err != nil {
		return Episode{}, fmt.Errorf("decoding config of episode %s: %w", id, err)
	}
	ep.Seed = uint64(seed)
	if ret.Valid {
		v := ret.Float64
		ep.Return = &v
	}
	ep.CreatedAt = time.Unix(created, 0)
	return ep, nil
}

// Steps loads the steps of an episode in order.
func (s *Store) Steps(episodeID string) ([]Step, error) {
	rows, err := s.db.Query(
		`SELECT step, action, reward, terminal, ego_acc, features_json FROM steps WHERE episode_id = ? ORDER BY step`,
		episodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var (
			st       Step
			featJSON string
		)
		if err := rows.Scan(&st.Step, &st.Action, &st.Reward, &st.Terminal, &st.EgoAcc, &featJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(featJSON), &st.Features); err != nil {
			return nil, fmt.Errorf("decoding features of step %d: %w", st.Step, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
