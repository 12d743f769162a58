package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/cbl/internal/apperr"
	"github.com/starford/cbl/internal/models"
)

// RecordRow is the data needed to insert one object-version record.
type RecordRow struct {
	Name      string
	Version   string
	Section   *string
	Audience  *string
	Digest    string
	CreatedAt time.Time
}

// CreateProject inserts a project. Names are unique.
func (db *DB) CreateProject(name, description string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.Exec(`INSERT INTO project (name, description) VALUES (?, ?)`, name, description)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("index: %q: %w", name, apperr.ErrDuplicateProject)
		}
		return 0, fmt.Errorf("index: insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("index: project id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index: commit: %w", err)
	}
	return id, nil
}

// GetProject looks a project up by name.
func (db *DB) GetProject(name string) (*models.Project, error) {
	var p models.Project
	err := db.conn.QueryRow(`SELECT id, name, description FROM project WHERE name = ?`, name).
		Scan(&p.ID, &p.Name, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %q: %w", name, apperr.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns every project ordered by name.
func (db *DB) ListProjects() ([]models.Project, error) {
	rows, err := db.conn.Query(`SELECT id, name, description FROM project ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("index: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindSingleProject returns the only project's name. It fails with
// ErrAmbiguousProject when there are zero or several projects.
func (db *DB) FindSingleProject() (string, error) {
	projects, err := db.ListProjects()
	if err != nil {
		return "", err
	}
	if len(projects) != 1 {
		return "", fmt.Errorf("index: %d projects exist, specify one: %w", len(projects), apperr.ErrAmbiguousProject)
	}
	return projects[0].Name, nil
}

// AddRecord inserts a record for the project with the given id. Duplicate
// (name, version) pairs are allowed.
func (db *DB) AddRecord(projectID int64, r RecordRow) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id, err := insertRecord(tx, projectID, r)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index: commit: %w", err)
	}
	return id, nil
}

// AddRecordByName resolves the project and inserts the record in a single
// transaction.
func (db *DB) AddRecordByName(project string, r RecordRow) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var projectID int64
	err = tx.QueryRow(`SELECT id FROM project WHERE name = ?`, project).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("index: %q: %w", project, apperr.ErrProjectNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("index: lookup project: %w", err)
	}

	id, err := insertRecord(tx, projectID, r)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index: commit: %w", err)
	}
	return id, nil
}

func insertRecord(tx *sql.Tx, projectID int64, r RecordRow) (int64, error) {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := tx.Exec(`
		INSERT INTO object (project_id, name, version, section, audience, hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, projectID, r.Name, r.Version, r.Section, r.Audience, r.Digest, created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("index: insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("index: record id: %w", err)
	}
	return id, nil
}

// ListRecords returns every record of the project in insertion order,
// restricted to one audience when audience is non-empty.
func (db *DB) ListRecords(project, audience string) ([]models.Record, error) {
	p, err := db.GetProject(project)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, version, section, audience, hash, created_at
		FROM object
		WHERE project_id = ?`
	args := []any{p.ID}
	if audience != "" {
		query += ` AND audience = ?`
		args = append(args, audience)
	}
	query += ` ORDER BY id`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r        models.Record
			sec, aud sql.NullString
			created  string
		)
		if err := rows.Scan(&r.Seq, &r.Name, &r.Version, &sec, &aud, &r.Digest, &created); err != nil {
			return nil, err
		}
		if sec.Valid {
			r.Section = &sec.String
		}
		if aud.Valid {
			r.Audience = &aud.String
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("index: record %d created_at %q: %w", r.Seq, created, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
