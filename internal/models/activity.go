package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityKind tags an activity with the behavior and response collection it
// uses. Exactly one of the collections below is populated per kind.
type ActivityKind string

const (
	ActivityPoll      ActivityKind = "poll"
	ActivityQuiz      ActivityKind = "quiz"
	ActivityWordCloud ActivityKind = "wordcloud"
	ActivityQA        ActivityKind = "qa"
)

// Valid reports whether k is one of the four supported kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityPoll, ActivityQuiz, ActivityWordCloud, ActivityQA:
		return true
	}
	return false
}

// Activity is one question/prompt unit within a session. Kind is immutable
// after creation. At most one activity per session has IsOpen=true: the one
// at the session's navigation cursor.
type Activity struct {
	ID            uuid.UUID
	Kind          ActivityKind
	Question      string
	Options       []string // poll/quiz only
	CorrectAnswer *int     // index into Options, quiz only
	IsOpen        bool
	CreatedAt     time.Time

	PollResponses []PollResponse     // poll: at most one per participant
	QuizResponses []QuizResponse     // quiz: at most one per participant
	Words         []WordEntry        // wordcloud: unbounded
	Questions     []*AudienceQuestion // qa: unbounded
}

// ResponseCount returns the size of the collection matching the activity's kind.
func (a *Activity) ResponseCount() int {
	switch a.Kind {
	case ActivityWordCloud:
		return len(a.Words)
	case ActivityQA:
		return len(a.Questions)
	default:
		return len(a.PollResponses) + len(a.QuizResponses)
	}
}

// PollResponse is one participant's current poll vote. A resubmission
// replaces the prior record for the same identity.
type PollResponse struct {
	Identity    string    `json:"-"`
	OptionIndex int       `json:"optionIndex"`
	Name        string    `json:"participantName"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// QuizResponse is one participant's quiz answer. The first answer wins; later
// submissions from the same identity are rejected.
type QuizResponse struct {
	Identity       string    `json:"-"`
	OptionIndex    int       `json:"optionIndex"`
	Name           string    `json:"participantName"`
	IsCorrect      bool      `json:"isCorrect"`
	ResponseTimeMs int       `json:"responseTimeMs"`
	Score          int       `json:"score"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// WordEntry is one submitted word or phrase in a word cloud.
type WordEntry struct {
	Identity    string    `json:"-"`
	Text        string    `json:"text"`
	Name        string    `json:"participantName"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// AudienceQuestion is one submitted Q&A question with its upvoter set.
type AudienceQuestion struct {
	ID          uuid.UUID
	Identity    string
	Text        string
	Name        string
	SubmittedAt time.Time
	Upvoters    map[string]struct{}
}

// ActivityInfo is the wire shape of an activity sent to the room on launch
// and to a joiner catching up. Response collections are never included.
type ActivityInfo struct {
	ID       uuid.UUID    `json:"id"`
	Kind     ActivityKind `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options"`
	IsOpen   bool         `json:"isOpen"`
}

// Info returns the activity's wire shape.
func (a *Activity) Info() ActivityInfo {
	return ActivityInfo{
		ID:       a.ID,
		Kind:     a.Kind,
		Question: a.Question,
		Options:  a.Options,
		IsOpen:   a.IsOpen,
	}
}
