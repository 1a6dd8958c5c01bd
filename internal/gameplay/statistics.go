package gameplay

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// statsRetrievedKey marks in database_info that a full statistics sync has committed.
const statsRetrievedKey = "stats_retrieved"

const (
	intStatisticsQuery = `
	SELECT s.id, s.key, s.increment_only,
		i.value, i.default_value, i.min_value, i.max_value, i.max_change
	FROM int_statistic AS i
	JOIN statistic AS s ON s.id = i.id`

	floatStatisticsQuery = `
	SELECT s.id, s.key, s.type, s.increment_only,
		f.value, f.default_value, f.min_value, f.max_value, f.max_change, f."window"
	FROM float_statistic AS f
	JOIN statistic AS s ON s.id = f.id`
)

// SyncResult describes a committed full replace.
type SyncResult struct {
	ID    string // correlates the log lines of one sync
	Count int
}

// HasStatistics reports whether a statistics sync has ever completed.
// Any failure reading or parsing the flag counts as not synced.
func (d *DB) HasStatistics(ctx context.Context) bool {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM database_info WHERE key = ?`, statsRetrievedKey).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			d.logger.Debug("failed to read stats flag", "error", err)
		}
		return false
	}
	n, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		d.logger.Debug("malformed stats flag", "value", value, "error", err)
		return false
	}
	return n != 0
}

// Statistics loads every persisted statistic. Integer statistics come first;
// the order within each kind is whatever the engine returns.
func (d *DB) Statistics(ctx context.Context) ([]Statistic, error) {
	ints, err := d.intStatistics(ctx)
	if err != nil {
		return nil, err
	}
	floats, err := d.floatStatistics(ctx)
	if err != nil {
		return nil, err
	}

	stats := append(ints, floats...)
	d.logger.Debug("loaded statistics", "int", len(ints), "float", len(floats))
	return stats, nil
}

func (d *DB) intStatistics(ctx context.Context) ([]Statistic, error) {
	rows, err := d.db.QueryContext(ctx, intStatisticsQuery)
	if err != nil {
		return nil, storageErr("query int statistics", err)
	}
	defer rows.Close()

	var stats []Statistic
	for rows.Next() {
		var (
			s             Statistic
			incrementOnly int64
			v             IntValues
		)
		if err := rows.Scan(&s.ID, &s.Key, &incrementOnly,
			&v.Value, &v.DefaultValue, &v.MinValue, &v.MaxValue, &v.MaxChange); err != nil {
			return nil, storageErr("scan int statistic", err)
		}
		s.IncrementOnly = incrementOnly == 1
		s.Values = v
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read int statistics", err)
	}
	return stats, nil
}

func (d *DB) floatStatistics(ctx context.Context) ([]Statistic, error) {
	rows, err := d.db.QueryContext(ctx, floatStatisticsQuery)
	if err != nil {
		return nil, storageErr("query float statistics", err)
	}
	defer rows.Close()

	var stats []Statistic
	for rows.Next() {
		var (
			s             Statistic
			kind          string
			incrementOnly int64
			f             Fields[float64]
			window        *float64
		)
		if err := rows.Scan(&s.ID, &s.Key, &kind, &incrementOnly,
			&f.Value, &f.DefaultValue, &f.MinValue, &f.MaxValue, &f.MaxChange, &window); err != nil {
			return nil, storageErr("scan float statistic", err)
		}
		s.IncrementOnly = incrementOnly == 1

		values, err := floatValues(kind, f)
		if err != nil {
			integrity := &DataIntegrityError{ID: s.ID, Key: s.Key, Kind: kind}
			return nil, storageErr("load float statistics", integrity)
		}
		s.Values = values
		if values.Kind() == KindAvgRate {
			s.Window = window
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read float statistics", err)
	}
	return stats, nil
}

// floatValues builds the payload for a row of float_statistic from its parent kind-tag.
func floatValues(kind string, f Fields[float64]) (Values, error) {
	switch ValueKind(kind) {
	case KindFloat:
		return FloatValues{f}, nil
	case KindAvgRate:
		return AvgRateValues{f}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %q", kind)
	}
}

// SetStatistics replaces every persisted statistic with stats in one transaction
// and marks the statistics as retrieved. On error nothing is changed.
func (d *DB) SetStatistics(ctx context.Context, stats []Statistic) (SyncResult, error) {
	for i, s := range stats {
		if err := s.Validate(); err != nil {
			return SyncResult{}, fmt.Errorf("statistic %d: %w", i, err)
		}
	}

	d.syncMu.Lock()
	defer d.syncMu.Unlock()

	result := SyncResult{ID: uuid.NewString(), Count: len(stats)}
	logger := d.logger.With("sync_id", result.ID)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncResult{}, storageErr("begin statistics sync", err)
	}
	defer tx.Rollback()

	if err := clearStatistics(ctx, tx); err != nil {
		return SyncResult{}, err
	}

	ins, err := prepareStatisticInserts(ctx, tx)
	if err != nil {
		return SyncResult{}, err
	}
	defer ins.close()

	for _, s := range stats {
		if err := ins.insert(ctx, s); err != nil {
			return SyncResult{}, err
		}
	}

	if err := markStatisticsRetrieved(ctx, tx); err != nil {
		// The statistics are still committed; the next check just reports not synced.
		logger.Warn("failed to record stats sync flag", "error", err)
	}

	if err := tx.Commit(); err != nil {
		return SyncResult{}, storageErr("commit statistics sync", err)
	}

	logger.Info("statistics synced", "count", result.Count)
	return result, nil
}

func clearStatistics(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"int_statistic", "float_statistic", "statistic"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return storageErr("clear "+table, err)
		}
	}
	return nil
}

// statisticInserts holds the prepared statements of one sync transaction.
type statisticInserts struct {
	parent *sql.Stmt
	ints   *sql.Stmt
	floats *sql.Stmt
}

func prepareStatisticInserts(ctx context.Context, tx *sql.Tx) (*statisticInserts, error) {
	ins := &statisticInserts{}
	var err error
	if ins.parent, err = tx.PrepareContext(ctx,
		`INSERT INTO statistic (id, key, type, increment_only, changed) VALUES (?, ?, ?, ?, 0)`); err != nil {
		return nil, storageErr("prepare statistic insert", err)
	}
	if ins.ints, err = tx.PrepareContext(ctx,
		`INSERT INTO int_statistic (id, value, default_value, min_value, max_value, max_change)
		VALUES (?, ?, ?, ?, ?, ?)`); err != nil {
		ins.close()
		return nil, storageErr("prepare int statistic insert", err)
	}
	if ins.floats, err = tx.PrepareContext(ctx,
		`INSERT INTO float_statistic (id, value, default_value, min_value, max_value, max_change, "window")
		VALUES (?, ?, ?, ?, ?, ?, ?)`); err != nil {
		ins.close()
		return nil, storageErr("prepare float statistic insert", err)
	}
	return ins, nil
}

func (ins *statisticInserts) close() {
	for _, stmt := range []*sql.Stmt{ins.parent, ins.ints, ins.floats} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (ins *statisticInserts) insert(ctx context.Context, s Statistic) error {
	incrementOnly := 0
	if s.IncrementOnly {
		incrementOnly = 1
	}
	if _, err := ins.parent.ExecContext(ctx, s.ID, s.Key, string(s.Kind()), incrementOnly); err != nil {
		return storageErr(fmt.Sprintf("insert statistic %d (%s)", s.ID, s.Key), err)
	}

	var err error
	switch v := s.Values.(type) {
	case IntValues:
		_, err = ins.ints.ExecContext(ctx, s.ID,
			v.Value, v.Default(), v.MinValue, v.MaxValue, v.MaxChange)
	case FloatValues:
		_, err = ins.floats.ExecContext(ctx, s.ID,
			v.Value, v.Default(), v.MinValue, v.MaxValue, v.MaxChange, nil)
	case AvgRateValues:
		_, err = ins.floats.ExecContext(ctx, s.ID,
			v.Value, v.Default(), v.MinValue, v.MaxValue, v.MaxChange, s.Window)
	}
	if err != nil {
		return storageErr(fmt.Sprintf("insert %s values of statistic %d (%s)", s.Kind(), s.ID, s.Key), err)
	}
	return nil
}

// markStatisticsRetrieved inserts the sync flag, or updates it when the row already exists.
func markStatisticsRetrieved(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO database_info (key, value) VALUES (?, '1')
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, statsRetrievedKey)
	return err
}
