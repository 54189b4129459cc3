package models

import (
	"time"

	"github.com/google/uuid"
)

// Projections are the recomputed, read-optimized aggregate views of an
// activity's raw responses. They are rebuilt from scratch on every mutation
// and carry no references into live session state.

// PollOptionResult is the tally for one poll option.
type PollOptionResult struct {
	Option     string   `json:"option"`
	Votes      int      `json:"votes"`
	VoterNames []string `json:"voterNames"`
}

// PollResults is the poll projection broadcast to the room.
type PollResults struct {
	ActivityID uuid.UUID          `json:"activityId"`
	Kind       ActivityKind       `json:"type"`
	Question   string             `json:"question"`
	Results    []PollOptionResult `json:"results"`
	TotalVotes int                `json:"totalVotes"`
}

// QuizOptionResult is the tally for one quiz option.
type QuizOptionResult struct {
	Option    string `json:"option"`
	Count     int    `json:"count"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuizLeaderboardEntry ranks one response within a single quiz activity:
// correct answers first, fastest first among them.
type QuizLeaderboardEntry struct {
	Name           string    `json:"name"`
	IsCorrect      bool      `json:"isCorrect"`
	Score          int       `json:"score"`
	AnsweredOption string    `json:"answeredOption"`
	CorrectOption  string    `json:"correctOption"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// QuizResults is the quiz projection sent to the presenter only.
type QuizResults struct {
	ActivityID    uuid.UUID              `json:"activityId"`
	Kind          ActivityKind           `json:"type"`
	Question      string                 `json:"question"`
	Results       []QuizOptionResult     `json:"results"`
	TotalAnswers  int                    `json:"totalAnswers"`
	CorrectCount  int                    `json:"correctCount"`
	CorrectAnswer *int                   `json:"correctAnswer"`
	CorrectOption string                 `json:"correctOption"`
	Leaderboard   []QuizLeaderboardEntry `json:"leaderboard"`
}

// QuizFeedback is sent to the answering participant only, never broadcast,
// so correct answers do not leak to the room.
type QuizFeedback struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectOption string `json:"correctOption"`
	Score         int    `json:"score"`
}

// WordCount is one aggregated word-cloud entry.
type WordCount struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// WordCloudResults is the word-cloud projection broadcast to the room.
type WordCloudResults struct {
	ActivityID       uuid.UUID    `json:"activityId"`
	Kind             ActivityKind `json:"type"`
	Question         string       `json:"question"`
	Words            []WordCount  `json:"words"`
	TotalSubmissions int          `json:"totalSubmissions"`
}

// QAQuestionResult is one ranked Q&A question.
type QAQuestionResult struct {
	ID          uuid.UUID `json:"id"`
	Text        string    `json:"text"`
	Name        string    `json:"participantName"`
	UpvoteCount int       `json:"upvoteCount"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// QAResults is the Q&A projection broadcast to the room.
type QAResults struct {
	ActivityID     uuid.UUID          `json:"activityId"`
	Kind           ActivityKind       `json:"type"`
	Question       string             `json:"question"`
	Questions      []QAQuestionResult `json:"questions"`
	TotalQuestions int                `json:"totalQuestions"`
}

// LeaderboardEntry is one row of the session-wide quiz leaderboard,
// aggregated per display name across all quiz activities.
type LeaderboardEntry struct {
	Name     string `json:"name"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Accuracy int    `json:"accuracy"`
}
