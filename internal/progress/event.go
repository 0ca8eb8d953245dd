// Package progress defines the event structures emitted during a
// verification run. Events are fire-and-forget: emitting never blocks the
// crawl and a saturated or unavailable sink never fails it.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageRunDone     Stage = "RUN_DONE"
	StageCrawlStart  Stage = "CRAWL_START"
	StageCrawlDone   Stage = "CRAWL_DONE"
	StageCrawlError  Stage = "CRAWL_ERROR"
	StageVisitStart  Stage = "VISIT_START"
	StageVisitDone   Stage = "VISIT_DONE"
	StageLinkSkipped Stage = "LINK_SKIPPED"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for visit completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single milestone of verification progress.
type Event struct {
	// RunID uniquely identifies a verification run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or visit milestone occurred.
	Stage Stage
	// Environment scopes crawl and visit events to a deployment target.
	Environment string
	// URL is the page URL or normalized path, depending on the stage.
	URL string
	// Visits increments by one for each completed page visit.
	Visits int64
	// StatusClass groups HTTP response codes (2xx, 4xx, etc).
	StatusClass StatusClass
	// Dur captures execution latency for visits and whole crawls.
	Dur time.Duration
	// Note carries low-volume context such as skip reasons or error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageCrawlStart, StageCrawlDone, StageCrawlError:
		if e.Environment == "" {
			return errors.New("crawl events require an environment")
		}
	case StageVisitStart, StageLinkSkipped:
		if e.Environment == "" {
			return errors.New("visit events require an environment")
		}
	case StageVisitDone:
		if e.Environment == "" {
			return errors.New("visit events require an environment")
		}
		if e.StatusClass == "" {
			return errors.New("visit done requires a status class")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for stores.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ClassifyStatus groups HTTP status codes for visit events. Navigation
// failures carry code 0 and land in the "other" class.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
