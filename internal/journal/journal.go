// internal/journal/journal.go
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/signalnine/housewatch/internal/protocol"
)

// fixed width so stored timestamps sort as text
const timestampFormat = "2006-01-02T15:04:05.000000000Z"

// Entry is one alert together with its delivery outcome
type Entry struct {
	ID        string
	Pipeline  string
	Alert     protocol.Alert
	Delivered bool
	Error     string
	CreatedAt time.Time
}

// Journal records every alert the pipelines produce
type Journal struct {
	db *sql.DB
}

// Open opens or creates the SQLite journal
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT NOT NULL,
		description TEXT,
		fields TEXT,
		delivered INTEGER NOT NULL,
		error TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_pipeline ON alerts(pipeline);
	CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// dsn applies the pragmas to every connection the pool opens, since both
// pipelines write from separate goroutines
func dsn(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores an alert and the outcome of its delivery. deliveryErr is
// nil when the webhook accepted it. Returns the new entry id.
func (j *Journal) Record(pipeline string, a protocol.Alert, deliveryErr error) (string, error) {
	fieldsJSON, err := json.Marshal(a.Fields)
	if err != nil {
		return "", err
	}

	var errText sql.NullString
	if deliveryErr != nil {
		errText = sql.NullString{String: deliveryErr.Error(), Valid: true}
	}

	id := uuid.NewString()
	_, err = j.db.Exec(`
		INSERT INTO alerts (id, pipeline, kind, severity, title, summary, description, fields, delivered, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, pipeline, string(a.Kind), a.Severity.String(), a.Title, a.Summary, a.Description,
		string(fieldsJSON), deliveryErr == nil, errText, time.Now().UTC().Format(timestampFormat))
	if err != nil {
		return "", err
	}

	return id, nil
}

// Recent returns the newest entries, optionally for one pipeline ("" for all)
func (j *Journal) Recent(pipeline string, limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, pipeline, kind, severity, title, summary, description, fields, delivered, error, created_at
		FROM alerts
		WHERE ? = '' OR pipeline = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, pipeline, pipeline, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Failed returns the newest entries whose delivery failed, optionally for
// one pipeline ("" for all)
func (j *Journal) Failed(pipeline string, limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, pipeline, kind, severity, title, summary, description, fields, delivered, error, created_at
		FROM alerts
		WHERE delivered = 0 AND (? = '' OR pipeline = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, pipeline, pipeline, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// KindCounts returns the number of alerts per kind
func (j *Journal) KindCounts() (map[string]int, error) {
	rows, err := j.db.Query(`
		SELECT kind, COUNT(*) FROM alerts GROUP BY kind
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind, severity, createdStr string
		var description, fieldsJSON, errText sql.NullString

		err := rows.Scan(&e.ID, &e.Pipeline, &kind, &severity, &e.Alert.Title, &e.Alert.Summary,
			&description, &fieldsJSON, &e.Delivered, &errText, &createdStr)
		if err != nil {
			return nil, err
		}

		e.Alert.Kind = protocol.Kind(kind)
		e.Alert.Severity = parseSeverity(severity)
		e.CreatedAt, err = time.Parse(timestampFormat, createdStr)
		if err != nil {
			return nil, fmt.Errorf("entry %s: created_at: %w", e.ID, err)
		}
		if description.Valid {
			e.Alert.Description = description.String
		}
		if fieldsJSON.Valid {
			if err := json.Unmarshal([]byte(fieldsJSON.String), &e.Alert.Fields); err != nil {
				return nil, fmt.Errorf("entry %s: fields: %w", e.ID, err)
			}
		}
		if errText.Valid {
			e.Error = errText.String
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func parseSeverity(s string) protocol.Severity {
	for _, sev := range []protocol.Severity{
		protocol.SeverityNominal,
		protocol.SeverityWarning,
		protocol.SeverityCritical,
	} {
		if sev.String() == s {
			return sev
		}
	}
	return protocol.SeverityInformational
}
