package ingest

import (
	"spatools/api/models/constants"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	Queued  State = "Queued"
	Running State = "Running"
	Done    State = "Done"
	Error   State = "Error"
)

type IngestRequest struct {
	Id        uuid.UUID           `json:"id"`
	Filename  string              `json:"filename"`
	AssayType constants.AssayType `json:"assayType"`
	Batch     string              `json:"batch"`
	State     State               `json:"state"`
	Message   string              `json:"message"`
	Records   int64               `json:"records"`
	Rejected  int64               `json:"rejected"`
	ErrorLog  []string            `json:"errorLog,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// IsFinished reports whether the request reached a terminal state.
func (r *IngestRequest) IsFinished() bool {
	return r.State == Done || r.State == Error
}

type IngestResponseDTO struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	State    State     `json:"state"`
	Message  string    `json:"message"`
}
