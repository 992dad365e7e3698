package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/colonysim/internal/config"
)

// Run is one row of simulation_runs: a simulation run and the configuration
// it was started with.
type Run struct {
	UUID          string `db:"uuid" json:"uuid"`
	TimeCreated   string `db:"time_created" json:"time_created"`
	Description   string `db:"description" json:"description"`
	GeneralConfig string `db:"general_config" json:"general_config"`
	WorldsConfig  string `db:"worlds_config" json:"worlds_config"`
}

// NewRun creates a run with a fresh UUID and the serialized configuration.
func NewRun(cfg *config.Config, description string) (Run, error) {
	general, err := json.Marshal(struct {
		Simulation config.SimulationConfig `json:"simulation"`
		Storage    string                  `json:"storage_driver"`
	}{cfg.Simulation, cfg.Storage.Driver})
	if err != nil {
		return Run{}, fmt.Errorf("encode general config: %w", err)
	}
	worlds, err := json.Marshal(cfg.Worlds)
	if err != nil {
		return Run{}, fmt.Errorf("encode worlds config: %w", err)
	}
	return Run{
		UUID:          uuid.NewString(),
		TimeCreated:   time.Now().UTC().Format(time.RFC3339),
		Description:   description,
		GeneralConfig: string(general),
		WorldsConfig:  string(worlds),
	}, nil
}

// BeginRun records a run.
func (db *DB) BeginRun(run Run) error {
	_, err := db.conn.NamedExec(`INSERT INTO simulation_runs
		(uuid, time_created, description, general_config, worlds_config)
		VALUES (:uuid, :time_created, :description, :general_config, :worlds_config)`, run)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.UUID, err)
	}
	return nil
}

// GetRun returns one run by UUID.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, db.conn.Rebind(
		"SELECT uuid, time_created, description, general_config, worlds_config FROM simulation_runs WHERE uuid = ?"), id)
	return run, err
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := db.conn.Select(&runs, db.conn.Rebind(
		"SELECT uuid, time_created, description, general_config, worlds_config FROM simulation_runs ORDER BY time_created DESC LIMIT ?"), limit)
	return runs, err
}
