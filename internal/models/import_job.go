// internal/models/import_job.go
package models

import "time"

// ImportJob is the trigger record for one catalog import run.
type ImportJob struct {
	BaseModel
	Status     ImportStatus     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	SourceType ImportSourceType `json:"source_type" gorm:"type:varchar(20);not null"`
	Source     string           `json:"source" gorm:"size:1024;not null"`
	Created    int              `json:"created" gorm:"default:0"`
	Updated    int              `json:"updated" gorm:"default:0"`
	Skipped    int              `json:"skipped" gorm:"default:0"`
	FailedRows int              `json:"failed_rows" gorm:"default:0"`
	Error      string           `json:"error,omitempty" gorm:"type:text"`
	StartedAt  *time.Time       `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at"`
}

func (j *ImportJob) IsTerminal() bool {
	return j.Status == ImportStatusCompleted || j.Status == ImportStatusFailed
}
