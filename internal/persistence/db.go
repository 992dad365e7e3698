// Package persistence stores run statistics and resumable world state in
// SQLite (modernc) or Postgres (pgx) through sqlx.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/talgya/colonysim/internal/calendar"
	"github.com/talgya/colonysim/internal/citizens"
	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/engine"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// ErrNoWorldState is returned by LoadWorldState when nothing was saved.
var ErrNoWorldState = errors.New("no saved world state")

// DB wraps a SQL connection for statistics and world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open connects to the database and creates missing tables. An empty
// driver means SQLite; for SQLite the DSN is a file path.
func Open(driver, dsn string) (*DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver == DriverSQLite && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the driver name the connection was opened with.
func (db *DB) Driver() string {
	return db.conn.DriverName()
}

// Statements are kept to the subset of SQL both engines accept.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS simulation_runs (
		uuid TEXT PRIMARY KEY,
		time_created TEXT NOT NULL,
		description TEXT NOT NULL,
		general_config TEXT NOT NULL,
		worlds_config TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_records (
		uuid TEXT NOT NULL,
		date TEXT NOT NULL,
		colony BIGINT NOT NULL,
		colony_name TEXT NOT NULL,
		total_pop INTEGER NOT NULL,
		average_age INTEGER NOT NULL,
		younglings INTEGER NOT NULL,
		working_pop INTEGER NOT NULL,
		retirees INTEGER NOT NULL,
		average_children_per_mother DOUBLE PRECISION NOT NULL,
		infant_deaths INTEGER NOT NULL,
		starvation_deaths INTEGER NOT NULL,
		old_age_death INTEGER NOT NULL,
		citizen_created INTEGER NOT NULL,
		meat_resources DOUBLE PRECISION NOT NULL,
		meat_quality DOUBLE PRECISION NOT NULL,
		meat_consumed DOUBLE PRECISION NOT NULL,
		meat_produced DOUBLE PRECISION NOT NULL,
		carb_resources DOUBLE PRECISION NOT NULL,
		carb_quality DOUBLE PRECISION NOT NULL,
		carb_consumed DOUBLE PRECISION NOT NULL,
		carb_produced DOUBLE PRECISION NOT NULL,
		food_resources DOUBLE PRECISION NOT NULL,
		food_quality DOUBLE PRECISION NOT NULL,
		food_consumed DOUBLE PRECISION NOT NULL,
		food_produced DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (uuid, date, colony)
	)`,
	`CREATE TABLE IF NOT EXISTS citizens (
		id BIGINT PRIMARY KEY,
		colony BIGINT NOT NULL,
		data_json TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS farms (
		id BIGINT PRIMARY KEY,
		colony BIGINT NOT NULL,
		kind INTEGER NOT NULL,
		harvested DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS resource_pools (
		colony BIGINT NOT NULL,
		kind INTEGER NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		quality DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (colony, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_colony_date ON simulation_records(colony, date)`,
}

func (db *DB) migrate() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(db.conn.Rebind(
		`INSERT INTO world_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, db.conn.Rebind("SELECT value FROM world_meta WHERE key = ?"), key)
	return value, err
}

// HasWorldState reports whether a world state was saved.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta("date")
	return err == nil
}

// SaveWorldState performs a full save of the mutable world state.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	st := sim.State()
	slog.Debug("saving world state", "citizens", len(st.Citizens), "farms", len(st.Farms), "date", calendar.Format(st.Date))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveCitizens(tx, st.Citizens); err != nil {
		return fmt.Errorf("save citizens: %w", err)
	}
	if err := saveFarms(tx, st.Farms); err != nil {
		return fmt.Errorf("save farms: %w", err)
	}
	if err := savePools(tx, st.Pools); err != nil {
		return fmt.Errorf("save pools: %w", err)
	}
	flows, err := json.Marshal(st.Flows)
	if err != nil {
		return fmt.Errorf("encode day flows: %w", err)
	}
	meta := map[string]string{
		"date":            calendar.Format(st.Date),
		"last_step":       strconv.FormatUint(st.Step, 10),
		"run_id":          st.RunID,
		"next_citizen_id": strconv.FormatUint(st.NextCitizenID, 10),
		"random_draws":    strconv.FormatUint(st.RandomDraws, 10),
		"pending_day":     strconv.FormatBool(st.PendingDay),
		"day_flows":       string(flows),
	}
	for k, v := range meta {
		if _, err := tx.Exec(tx.Rebind(
			`INSERT INTO world_meta (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`), k, v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}

	return tx.Commit()
}

func saveCitizens(tx *sqlx.Tx, list []citizens.Citizen) error {
	if _, err := tx.Exec("DELETE FROM citizens"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(tx.Rebind("INSERT INTO citizens (id, colony, data_json) VALUES (?, ?, ?)"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range list {
		c := &list[i]
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("citizen %d: %w", c.ID, err)
		}
		if _, err := stmt.Exec(c.ID, c.Colony, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func saveFarms(tx *sqlx.Tx, farms []economy.Farm) error {
	if _, err := tx.Exec("DELETE FROM farms"); err != nil {
		return err
	}
	for _, f := range farms {
		if _, err := tx.Exec(tx.Rebind("INSERT INTO farms (id, colony, kind, harvested) VALUES (?, ?, ?, ?)"),
			f.ID, f.Colony, int(f.Kind), f.Harvested); err != nil {
			return err
		}
	}
	return nil
}

func savePools(tx *sqlx.Tx, pools []economy.ResourcePool) error {
	if _, err := tx.Exec("DELETE FROM resource_pools"); err != nil {
		return err
	}
	for _, p := range pools {
		if _, err := tx.Exec(tx.Rebind("INSERT INTO resource_pools (colony, kind, amount, quality) VALUES (?, ?, ?, ?)"),
			p.Colony, int(p.Kind), p.Amount, p.Quality); err != nil {
			return err
		}
	}
	return nil
}

type farmRow struct {
	ID        uint64  `db:"id"`
	Colony    uint64  `db:"colony"`
	Kind      int     `db:"kind"`
	Harvested float64 `db:"harvested"`
}

type poolRow struct {
	Colony  uint64  `db:"colony"`
	Kind    int     `db:"kind"`
	Amount  float64 `db:"amount"`
	Quality float64 `db:"quality"`
}

// LoadWorldState reads the saved state and restores it into sim.
func (db *DB) LoadWorldState(sim *engine.Simulation) error {
	dateStr, err := db.GetMeta("date")
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoWorldState
	}
	if err != nil {
		return fmt.Errorf("load meta: %w", err)
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return fmt.Errorf("load meta date %q: %w", dateStr, err)
	}

	st := engine.WorldState{Date: date}
	if v, err := db.GetMeta("last_step"); err == nil {
		st.Step, _ = strconv.ParseUint(v, 10, 64)
	}
	if v, err := db.GetMeta("next_citizen_id"); err == nil {
		st.NextCitizenID, _ = strconv.ParseUint(v, 10, 64)
	}
	if v, err := db.GetMeta("run_id"); err == nil {
		st.RunID = v
	}
	if v, err := db.GetMeta("random_draws"); err == nil {
		st.RandomDraws, _ = strconv.ParseUint(v, 10, 64)
	}
	if v, err := db.GetMeta("pending_day"); err == nil {
		st.PendingDay, _ = strconv.ParseBool(v)
	}
	if v, err := db.GetMeta("day_flows"); err == nil && v != "" {
		if err := json.Unmarshal([]byte(v), &st.Flows); err != nil {
			return fmt.Errorf("decode day flows: %w", err)
		}
	}

	var blobs []string
	if err := db.conn.Select(&blobs, "SELECT data_json FROM citizens ORDER BY id"); err != nil {
		return fmt.Errorf("load citizens: %w", err)
	}
	for _, b := range blobs {
		var c citizens.Citizen
		if err := json.Unmarshal([]byte(b), &c); err != nil {
			return fmt.Errorf("decode citizen: %w", err)
		}
		st.Citizens = append(st.Citizens, c)
	}

	var farms []farmRow
	if err := db.conn.Select(&farms, "SELECT id, colony, kind, harvested FROM farms ORDER BY id"); err != nil {
		return fmt.Errorf("load farms: %w", err)
	}
	for _, f := range farms {
		st.Farms = append(st.Farms, economy.Farm{ID: f.ID, Colony: f.Colony, Kind: economy.FarmKind(f.Kind), Harvested: f.Harvested})
	}

	var pools []poolRow
	if err := db.conn.Select(&pools, "SELECT colony, kind, amount, quality FROM resource_pools ORDER BY colony, kind"); err != nil {
		return fmt.Errorf("load pools: %w", err)
	}
	for _, p := range pools {
		st.Pools = append(st.Pools, economy.ResourcePool{Colony: p.Colony, Kind: economy.ResourceKind(p.Kind), Amount: p.Amount, Quality: p.Quality})
	}

	if err := sim.Restore(st); err != nil {
		return err
	}
	slog.Info("world state restored", "citizens", len(st.Citizens), "date", dateStr, "step", st.Step)
	return nil
}

// ClearWorldState deletes any saved world state.
func (db *DB) ClearWorldState() error {
	for _, table := range []string{"citizens", "farms", "resource_pools", "world_meta"} {
		if _, err := db.conn.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// recordRow is the simulation_records row for one DayRecord.
type recordRow struct {
	UUID                     string  `db:"uuid"`
	Date                     string  `db:"date"`
	Colony                   uint64  `db:"colony"`
	ColonyName               string  `db:"colony_name"`
	TotalPop                 int     `db:"total_pop"`
	AverageAge               int     `db:"average_age"`
	Younglings               int     `db:"younglings"`
	WorkingPop               int     `db:"working_pop"`
	Retirees                 int     `db:"retirees"`
	AverageChildrenPerMother float64 `db:"average_children_per_mother"`
	InfantDeaths             int     `db:"infant_deaths"`
	StarvationDeaths         int     `db:"starvation_deaths"`
	OldAgeDeath              int     `db:"old_age_death"`
	CitizenCreated           int     `db:"citizen_created"`
	MeatResources            float64 `db:"meat_resources"`
	MeatQuality              float64 `db:"meat_quality"`
	MeatConsumed             float64 `db:"meat_consumed"`
	MeatProduced             float64 `db:"meat_produced"`
	CarbResources            float64 `db:"carb_resources"`
	CarbQuality              float64 `db:"carb_quality"`
	CarbConsumed             float64 `db:"carb_consumed"`
	CarbProduced             float64 `db:"carb_produced"`
	FoodResources            float64 `db:"food_resources"`
	FoodQuality              float64 `db:"food_quality"`
	FoodConsumed             float64 `db:"food_consumed"`
	FoodProduced             float64 `db:"food_produced"`
}

const recordColumns = `uuid, date, colony, colony_name, total_pop, average_age, younglings,
	working_pop, retirees, average_children_per_mother, infant_deaths, starvation_deaths,
	old_age_death, citizen_created, meat_resources, meat_quality, meat_consumed, meat_produced,
	carb_resources, carb_quality, carb_consumed, carb_produced, food_resources, food_quality,
	food_consumed, food_produced`

func toRow(runID string, r engine.DayRecord) recordRow {
	return recordRow{
		UUID: runID, Date: calendar.Format(r.Date), Colony: r.Colony, ColonyName: r.ColonyName,
		TotalPop: r.TotalPop, AverageAge: r.AverageAge, Younglings: r.Younglings,
		WorkingPop: r.WorkingPop, Retirees: r.Retirees, AverageChildrenPerMother: r.AverageChildrenPerMother,
		InfantDeaths: r.InfantDeaths, StarvationDeaths: r.StarvationDeaths, OldAgeDeath: r.OldAgeDeaths,
		CitizenCreated: r.CitizensCreated,
		MeatResources:  r.MeatResources, MeatQuality: r.MeatQuality, MeatConsumed: r.MeatConsumed, MeatProduced: r.MeatProduced,
		CarbResources: r.CarbResources, CarbQuality: r.CarbQuality, CarbConsumed: r.CarbConsumed, CarbProduced: r.CarbProduced,
		FoodResources: r.FoodResources, FoodQuality: r.FoodQuality, FoodConsumed: r.FoodConsumed, FoodProduced: r.FoodProduced,
	}
}

func (row recordRow) record() (engine.DayRecord, error) {
	date, err := time.ParseInLocation("2006-01-02", row.Date, time.UTC)
	if err != nil {
		return engine.DayRecord{}, fmt.Errorf("record date %q: %w", row.Date, err)
	}
	return engine.DayRecord{
		RunID: row.UUID, Date: date, Colony: row.Colony, ColonyName: row.ColonyName,
		TotalPop: row.TotalPop, AverageAge: row.AverageAge, Younglings: row.Younglings,
		WorkingPop: row.WorkingPop, Retirees: row.Retirees, AverageChildrenPerMother: row.AverageChildrenPerMother,
		InfantDeaths: row.InfantDeaths, StarvationDeaths: row.StarvationDeaths, OldAgeDeaths: row.OldAgeDeath,
		CitizensCreated: row.CitizenCreated,
		MeatResources:   row.MeatResources, MeatQuality: row.MeatQuality, MeatConsumed: row.MeatConsumed, MeatProduced: row.MeatProduced,
		CarbResources: row.CarbResources, CarbQuality: row.CarbQuality, CarbConsumed: row.CarbConsumed, CarbProduced: row.CarbProduced,
		FoodResources: row.FoodResources, FoodQuality: row.FoodQuality, FoodConsumed: row.FoodConsumed, FoodProduced: row.FoodProduced,
	}, nil
}

// SaveRecords writes one batch of daily records, replacing rows already
// stored for the same run, date and colony. It satisfies engine.Recorder.
func (db *DB) SaveRecords(runID string, records []engine.DayRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	names := strings.Split(strings.Join(strings.Fields(recordColumns), ""), ",")
	var updates []string
	for _, n := range names {
		if n != "uuid" && n != "date" && n != "colony" {
			updates = append(updates, n+" = excluded."+n)
		}
	}
	// A day closed again after resuming from a save replaces its earlier row.
	insert := fmt.Sprintf(`INSERT INTO simulation_records (%s) VALUES (:%s)
		ON CONFLICT (uuid, date, colony) DO UPDATE SET %s`,
		strings.Join(names, ", "), strings.Join(names, ", :"), strings.Join(updates, ", "))
	for _, r := range records {
		if _, err := tx.NamedExec(insert, toRow(runID, r)); err != nil {
			return fmt.Errorf("insert record %s/%d: %w", calendar.Format(r.Date), r.Colony, err)
		}
	}
	return tx.Commit()
}

// History returns the latest limit records of a colony within a run,
// oldest first.
func (db *DB) History(runID string, colonyID colony.ID, limit int) ([]engine.DayRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	var rows []recordRow
	err := db.conn.Select(&rows, db.conn.Rebind(
		"SELECT "+recordColumns+" FROM simulation_records WHERE uuid = ? AND colony = ? ORDER BY date DESC LIMIT ?"),
		runID, colonyID, limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.DayRecord, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	slices.Reverse(out)
	return out, nil
}
