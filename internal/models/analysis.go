package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AnalysisStatus string

const (
	StatusQueued     AnalysisStatus = "queued"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Analysis is the persisted record of one CV/job matching run. It is
// created queued, owned exclusively by the pipeline while processing, and
// reaches exactly one terminal state: completed or failed. Structured
// artifacts are stored as JSONB payloads.
type Analysis struct {
	ID       uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID   string         `gorm:"type:text;index" json:"user_id"`
	JobTitle string         `gorm:"type:text" json:"job_title"`
	CVText   string         `gorm:"type:text" json:"-"`
	JobText  string         `gorm:"type:text" json:"-"`
	Status   AnalysisStatus `gorm:"not null;default:'queued'" json:"status"`

	CVKeywords      datatypes.JSON `gorm:"type:jsonb" json:"cv_keywords,omitempty"`
	JobKeywords     datatypes.JSON `gorm:"type:jsonb" json:"job_keywords,omitempty"`
	AttentionMatrix datatypes.JSON `gorm:"type:jsonb" json:"attention_matrix,omitempty"`
	AlignmentScores datatypes.JSON `gorm:"type:jsonb" json:"alignment_scores,omitempty"`
	ATSReport       datatypes.JSON `gorm:"type:jsonb" json:"ats_report,omitempty"`
	AblationResults datatypes.JSON `gorm:"type:jsonb" json:"ablation_results,omitempty"`
	Recommendations datatypes.JSON `gorm:"type:jsonb" json:"recommendations,omitempty"`

	ErrorMessage     *string   `gorm:"type:text" json:"error_message,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Analysis) TableName() string {
	return "analyses"
}
