package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage is the lifecycle step an Event marks.
type Stage string

// Run and source stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageRunDone     Stage = "RUN_DONE"
	StageSourceStart Stage = "SOURCE_START"
	StageSourceDone  Stage = "SOURCE_DONE"
	StageSourceError Stage = "SOURCE_ERROR"
)

// Event is one lifecycle step of a run.
type Event struct {
	RunID   uuid.UUID
	TS      time.Time
	Stage   Stage
	Source  string
	Records int
	Dur     time.Duration
	// Note carries the error text for SOURCE_ERROR.
	Note string
}

// Validate rejects events a sink could not attribute.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageSourceStart, StageSourceDone, StageSourceError:
		if e.Source == "" {
			return fmt.Errorf("%s requires source", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 || e.Records < 0 {
		return errors.New("duration and records must be >= 0")
	}
	return nil
}
