package index

import "github.com/starford/cbl/internal/models"

// RecordIndex defines the metadata index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type RecordIndex interface {
	CreateProject(name, description string) (int64, error)
	GetProject(name string) (*models.Project, error)
	ListProjects() ([]models.Project, error)
	FindSingleProject() (string, error)
	AddRecord(projectID int64, r RecordRow) (int64, error)
	AddRecordByName(project string, r RecordRow) (int64, error)
	ListRecords(project, audience string) ([]models.Record, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)
