package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one audience member in a session, keyed by connection identity.
type Participant struct {
	Identity string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Session holds the full state of one live session: the ordered activity
// sequence, the participant roster and the navigation cursor.
// CurrentActivityIndex is -1 until the presenter launches an activity.
type Session struct {
	ID                   uuid.UUID               `json:"id"`
	Code                 string                  `json:"code"`
	Name                 string                  `json:"name"`
	PresenterIdentity    string                  `json:"-"`
	CreatedAt            time.Time               `json:"createdAt"`
	IsActive             bool                    `json:"isActive"`
	Participants         map[string]*Participant `json:"-"`
	Activities           []*Activity             `json:"-"`
	CurrentActivityIndex int                     `json:"currentActivityIndex"`
}

// ParticipantInfo is the wire shape of one roster entry sent to the presenter.
type ParticipantInfo struct {
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ActivitySummary is the per-activity slice of a session summary.
type ActivitySummary struct {
	ID            uuid.UUID    `json:"id"`
	Kind          ActivityKind `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options"`
	IsOpen        bool         `json:"isOpen"`
	ResponseCount int          `json:"responseCount"`
}

// SessionSummary is the read-only snapshot of a session exposed to the
// presenter and the HTTP info endpoint.
type SessionSummary struct {
	ID                   uuid.UUID         `json:"id"`
	Code                 string            `json:"code"`
	Name                 string            `json:"name"`
	CreatedAt            time.Time         `json:"createdAt"`
	CurrentActivityIndex int               `json:"currentActivityIndex"`
	ParticipantCount     int               `json:"participantCount"`
	ActivityCount        int               `json:"activityCount"`
	IsActive             bool              `json:"isActive"`
	Activities           []ActivitySummary `json:"activities"`
}
