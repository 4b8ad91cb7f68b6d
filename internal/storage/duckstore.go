package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/datalog-viewer/backend/internal/models"
)

// ErrNotArchived is returned when a log id is not in the archive.
var ErrNotArchived = errors.New("log not archived")

// Archive keeps decoded logs so they can be reopened and queried with SQL.
type Archive interface {
	Save(ctx context.Context, id, title string, data *models.LogData) error
	Load(ctx context.Context, id string) (*ArchivedLog, error)
	List(ctx context.Context) ([]ArchiveEntry, error)
	Delete(ctx context.Context, id string) error
	ColumnStats(ctx context.Context, id string, column int) (*ColumnStats, error)
	Close() error
}

// ArchiveEntry is the listing form of an archived log.
type ArchiveEntry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Hash       int32     `json:"hash"`
	Rows       int       `json:"rows"`
	Standalone bool      `json:"standalone"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// ArchivedLog is a log read back from the archive.
type ArchivedLog struct {
	ArchiveEntry
	Data *models.LogData `json:"data"`
}

// ColumnStats summarises the numeric cells of one column. Cells that are not
// numbers, including blanks, are left out.
type ColumnStats struct {
	Column int     `json:"column"`
	Header string  `json:"header"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// DuckOptions tunes the DuckDB connection.
type DuckOptions struct {
	MemoryLimit string // e.g. "512MB"
	Threads     int
}

// DuckStore implements Archive on a DuckDB file. Every cell is stored as its
// own row so that per-column aggregates are plain SQL.
type DuckStore struct {
	db     *sql.DB
	dbPath string

	// Semaphore to limit concurrent queries
	querySem chan struct{}
}

// NewDuckStore opens or creates the archive at dbPath. An empty path opens an
// in-memory database.
func NewDuckStore(dbPath string, opts DuckOptions) (*DuckStore, error) {
	fmt.Printf("[DuckStore] Opening archive at: %q\n", dbPath)

	pragmas := []string{"PRAGMA enable_progress_bar=false"}
	if opts.MemoryLimit != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
	}
	if opts.Threads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[DuckStore] Pragma warning: %v\n", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS logs (
			id              VARCHAR PRIMARY KEY,
			title           VARCHAR NOT NULL,
			hash            INTEGER NOT NULL,
			data_size       INTEGER NOT NULL,
			bytes_remaining INTEGER NOT NULL,
			daplink_version INTEGER NOT NULL,
			standalone      BOOLEAN NOT NULL,
			is_full         BOOLEAN NOT NULL,
			headers         VARCHAR NOT NULL,
			row_count       INTEGER NOT NULL,
			archived_at     TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cells (
			log_id     VARCHAR NOT NULL,
			row_idx    INTEGER NOT NULL,
			col_idx    INTEGER NOT NULL,
			is_heading BOOLEAN NOT NULL,
			value      VARCHAR NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	return &DuckStore{
		db:       db,
		dbPath:   dbPath,
		querySem: make(chan struct{}, 3), // Max 3 concurrent queries
	}, nil
}

func (ds *DuckStore) acquire(ctx context.Context) (func(), error) {
	select {
	case ds.querySem <- struct{}{}:
		return func() { <-ds.querySem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Save writes data under id, replacing any earlier copy.
func (ds *DuckStore) Save(ctx context.Context, id, title string, data *models.LogData) error {
	release, err := ds.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	log := data.Log
	if log == nil {
		log = models.EmptyLog()
	}

	headers, err := json.Marshal(log.Headers)
	if err != nil {
		return fmt.Errorf("encoding headers: %w", err)
	}

	if err := ds.deleteLocked(ctx, id); err != nil {
		return err
	}

	_, err = ds.db.ExecContext(ctx, `
		INSERT INTO logs (id, title, hash, data_size, bytes_remaining, daplink_version,
			standalone, is_full, headers, row_count, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, title, data.Hash, data.DataSize, data.BytesRemaining, data.DaplinkVersion,
		data.Standalone, log.IsFull, string(headers), len(log.Data), time.Now())
	if err != nil {
		return fmt.Errorf("inserting log: %w", err)
	}

	if err := ds.appendCells(ctx, id, log); err != nil {
		return err
	}

	fmt.Printf("[DuckStore] Archived %s (%d rows) in %v\n", id, len(log.Data), time.Since(start))
	return nil
}

// appendCells writes every cell using the native Appender API.
func (ds *DuckStore) appendCells(ctx context.Context, id string, log *models.DataLog) error {
	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "cells")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for r, row := range log.Data {
			for c, value := range row.Data {
				if err := appender.AppendRow(id, int32(r), int32(c), row.IsHeading, value); err != nil {
					return fmt.Errorf("failed to append cell %d,%d: %w", r, c, err)
				}
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}
	return nil
}

// Load reads an archived log back.
func (ds *DuckStore) Load(ctx context.Context, id string) (*ArchivedLog, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		entry    ArchiveEntry
		data     models.LogData
		isFull   bool
		headers  string
		rowCount int
	)
	err = ds.db.QueryRowContext(ctx, `
		SELECT id, title, hash, data_size, bytes_remaining, daplink_version,
			standalone, is_full, headers, row_count, archived_at
		FROM logs WHERE id = ?
	`, id).Scan(&entry.ID, &entry.Title, &data.Hash, &data.DataSize, &data.BytesRemaining,
		&data.DaplinkVersion, &data.Standalone, &isFull, &headers, &rowCount, &entry.ArchivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotArchived, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading log: %w", err)
	}

	var headerList []string
	if err := json.Unmarshal([]byte(headers), &headerList); err != nil {
		return nil, fmt.Errorf("decoding headers: %w", err)
	}

	rows, err := ds.db.QueryContext(ctx, `
		SELECT row_idx, is_heading, value FROM cells
		WHERE log_id = ?
		ORDER BY row_idx, col_idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("loading cells: %w", err)
	}
	defer rows.Close()

	dataRows := make([]models.DataLogRow, rowCount)
	for rows.Next() {
		var (
			r         int32
			isHeading bool
			value     string
		)
		if err := rows.Scan(&r, &isHeading, &value); err != nil {
			return nil, fmt.Errorf("scanning cell: %w", err)
		}
		if int(r) >= len(dataRows) {
			continue
		}
		dataRows[r].IsHeading = isHeading
		dataRows[r].Data = append(dataRows[r].Data, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(headerList) == 0 && rowCount == 0 {
		data.Log = models.EmptyLog()
	} else {
		data.Log = models.NewDataLog(headerList, dataRows, isFull)
	}
	entry.Hash = data.Hash
	entry.Rows = data.Log.RowCount()
	entry.Standalone = data.Standalone

	return &ArchivedLog{ArchiveEntry: entry, Data: &data}, nil
}

// List returns every archived log, newest first.
func (ds *DuckStore) List(ctx context.Context) ([]ArchiveEntry, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := ds.db.QueryContext(ctx, `
		SELECT l.id, l.title, l.hash, l.standalone, l.archived_at,
			(SELECT COUNT(DISTINCT row_idx) FROM cells c WHERE c.log_id = l.id AND NOT c.is_heading)
		FROM logs l
		ORDER BY l.archived_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	entries := []ArchiveEntry{}
	for rows.Next() {
		var e ArchiveEntry
		var count int64
		if err := rows.Scan(&e.ID, &e.Title, &e.Hash, &e.Standalone, &e.ArchivedAt, &count); err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		e.Rows = int(count)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an archived log. Deleting an unknown id is not an error.
func (ds *DuckStore) Delete(ctx context.Context, id string) error {
	release, err := ds.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return ds.deleteLocked(ctx, id)
}

func (ds *DuckStore) deleteLocked(ctx context.Context, id string) error {
	if _, err := ds.db.ExecContext(ctx, "DELETE FROM cells WHERE log_id = ?", id); err != nil {
		return fmt.Errorf("deleting cells: %w", err)
	}
	if _, err := ds.db.ExecContext(ctx, "DELETE FROM logs WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting log: %w", err)
	}
	return nil
}

// ColumnStats aggregates the numeric cells of column over non-heading rows.
func (ds *DuckStore) ColumnStats(ctx context.Context, id string, column int) (*ColumnStats, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var headers string
	err = ds.db.QueryRowContext(ctx, "SELECT headers FROM logs WHERE id = ?", id).Scan(&headers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotArchived, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading log: %w", err)
	}

	var headerList []string
	if err := json.Unmarshal([]byte(headers), &headerList); err != nil {
		return nil, fmt.Errorf("decoding headers: %w", err)
	}

	stats := &ColumnStats{Column: column}
	if column >= 0 && column < len(headerList) {
		stats.Header = headerList[column]
	}

	var (
		count          int64
		minV, maxV, av sql.NullFloat64
	)
	err = ds.db.QueryRowContext(ctx, `
		SELECT COUNT(v), MIN(v), MAX(v), AVG(v) FROM (
			SELECT TRY_CAST(value AS DOUBLE) AS v FROM cells
			WHERE log_id = ? AND col_idx = ? AND NOT is_heading
		)
	`, id, column).Scan(&count, &minV, &maxV, &av)
	if err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}

	stats.Count = int(count)
	stats.Min = minV.Float64
	stats.Max = maxV.Float64
	stats.Mean = av.Float64
	return stats, nil
}

// Close closes the database connection.
func (ds *DuckStore) Close() error {
	if ds.db == nil {
		return nil
	}
	fmt.Printf("[DuckStore] Closing archive %q\n", ds.dbPath)
	return ds.db.Close()
}
