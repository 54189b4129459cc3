package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/majjihemanthkumar/mentimeter/internal/models"
)

const (
	// Quiz speed bonus: a correct answer at 0ms scores quizBaseScore, decaying
	// linearly to quizBaseScore-quizSpeedBonus at quizMaxResponseMs and beyond.
	quizBaseScore     = 1000
	quizSpeedBonus    = 500
	quizMaxResponseMs = 30000

	defaultSessionName     = "Untitled Session"
	defaultParticipantName = "Anonymous"
)

// ActivitySpec is the presenter's authoring input for a new activity. The
// engine accepts it as given; option-count and correct-index validation is
// the authoring client's responsibility.
type ActivitySpec struct {
	Kind          models.ActivityKind
	Question      string
	Options       []string
	CorrectAnswer *int
}

// Engine owns one session's full state and serializes every operation behind
// a single mutex, so each inbound event - including its aggregation pass - is
// applied atomically before the next one for this session is processed.
type Engine struct {
	mu sync.Mutex
	s  *models.Session
}

// NewEngine creates a live session with no activities and an empty roster.
func NewEngine(code, name, presenterIdentity string) *Engine {
	if name == "" {
		name = defaultSessionName
	}
	return &Engine{s: &models.Session{
		ID:                   uuid.New(),
		Code:                 code,
		Name:                 name,
		PresenterIdentity:    presenterIdentity,
		CreatedAt:            time.Now(),
		IsActive:             true,
		Participants:         make(map[string]*models.Participant),
		CurrentActivityIndex: -1,
	}}
}

// Code returns the session's join code. Immutable, so no lock needed.
func (e *Engine) Code() string { return e.s.Code }

// Name returns the session's display name.
func (e *Engine) Name() string { return e.s.Name }

// PresenterIdentity returns the connection identity that created the session.
func (e *Engine) PresenterIdentity() string { return e.s.PresenterIdentity }

// IsActive reports whether the session is still accepting submissions.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.IsActive
}

// IsPresenter reports whether identity created this session.
func (e *Engine) IsPresenter(identity string) bool {
	return e.s.PresenterIdentity == identity
}

// HasParticipant reports whether identity is in the roster.
func (e *Engine) HasParticipant(identity string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.s.Participants[identity]
	return ok
}

// ParticipantName resolves the display name for a connection identity,
// defaulting to "Anonymous" for identities not in the roster.
func (e *Engine) ParticipantName(identity string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.s.Participants[identity]; ok {
		return p.Name
	}
	return defaultParticipantName
}

// CreateActivity appends a new activity, closed and with empty collections.
// Activities are append-only: there is no edit or delete after add.
func (e *Engine) CreateActivity(spec ActivitySpec) models.ActivityInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := &models.Activity{
		ID:            uuid.New(),
		Kind:          spec.Kind,
		Question:      spec.Question,
		Options:       spec.Options,
		CorrectAnswer: spec.CorrectAnswer,
		CreatedAt:     time.Now(),
	}
	if a.Options == nil {
		a.Options = []string{}
	}
	e.s.Activities = append(e.s.Activities, a)
	return a.Info()
}

// Launch closes the currently open activity, moves the cursor to index and
// opens the activity there. Out-of-range indexes are rejected without any
// state change.
func (e *Engine) Launch(index int) (models.ActivityInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.s.Activities) {
		return models.ActivityInfo{}, fmt.Errorf("no activity at index %d: %w", index, ErrInvalidTransition)
	}
	e.closeCurrentLocked()
	e.s.CurrentActivityIndex = index
	a := e.s.Activities[index]
	a.IsOpen = true
	return a.Info(), nil
}

// Advance moves the cursor one step forward. At the last activity it returns
// an error and mutates nothing.
func (e *Engine) Advance() (models.ActivityInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.CurrentActivityIndex >= len(e.s.Activities)-1 {
		return models.ActivityInfo{}, fmt.Errorf("no more activities: %w", ErrInvalidTransition)
	}
	e.closeCurrentLocked()
	e.s.CurrentActivityIndex++
	a := e.s.Activities[e.s.CurrentActivityIndex]
	a.IsOpen = true
	return a.Info(), nil
}

// Retreat moves the cursor one step back. At the first activity it returns
// an error and mutates nothing.
func (e *Engine) Retreat() (models.ActivityInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.CurrentActivityIndex <= 0 {
		return models.ActivityInfo{}, fmt.Errorf("already at the beginning: %w", ErrInvalidTransition)
	}
	e.closeCurrentLocked()
	e.s.CurrentActivityIndex--
	a := e.s.Activities[e.s.CurrentActivityIndex]
	a.IsOpen = true
	return a.Info(), nil
}

// CloseCurrent closes the activity at the cursor without moving it.
func (e *Engine) CloseCurrent() (models.ActivityInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.currentLocked()
	if a == nil {
		return models.ActivityInfo{}, fmt.Errorf("no current activity: %w", ErrNotFound)
	}
	a.IsOpen = false
	return a.Info(), nil
}

// CurrentActivity returns the activity at the cursor, if any.
func (e *Engine) CurrentActivity() (models.ActivityInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.currentLocked()
	if a == nil {
		return models.ActivityInfo{}, false
	}
	return a.Info(), true
}

// SubmitPollVote records a participant's vote, replacing any prior vote from
// the same identity (last vote wins), and returns the recomputed projection.
// Votes are accepted regardless of the activity's open flag; only existence
// and kind are checked.
func (e *Engine) SubmitPollVote(activityID uuid.UUID, identity string, optionIndex int, name string) (*models.PollResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.IsActive {
		return nil, ErrSessionEnded
	}
	a, err := e.activityLocked(activityID, models.ActivityPoll)
	if err != nil {
		return nil, err
	}

	kept := a.PollResponses[:0]
	for _, r := range a.PollResponses {
		if r.Identity != identity {
			kept = append(kept, r)
		}
	}
	a.PollResponses = append(kept, models.PollResponse{
		Identity:    identity,
		OptionIndex: optionIndex,
		Name:        name,
		SubmittedAt: time.Now(),
	})
	return projectPoll(a), nil
}

// SubmitQuizAnswer records a participant's answer. The first answer wins: a
// second submission from the same identity is rejected with no state change.
// Returns the participant's feedback and the recomputed presenter projection.
func (e *Engine) SubmitQuizAnswer(activityID uuid.UUID, identity string, optionIndex int, name string, responseTimeMs int) (*models.QuizFeedback, *models.QuizResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.IsActive {
		return nil, nil, ErrSessionEnded
	}
	a, err := e.activityLocked(activityID, models.ActivityQuiz)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range a.QuizResponses {
		if r.Identity == identity {
			return nil, nil, ErrDuplicateAnswer
		}
	}

	isCorrect := a.CorrectAnswer != nil && optionIndex == *a.CorrectAnswer
	a.QuizResponses = append(a.QuizResponses, models.QuizResponse{
		Identity:       identity,
		OptionIndex:    optionIndex,
		Name:           name,
		IsCorrect:      isCorrect,
		ResponseTimeMs: responseTimeMs,
		Score:          scoreAnswer(isCorrect, responseTimeMs),
		SubmittedAt:    time.Now(),
	})

	feedback := &models.QuizFeedback{
		IsCorrect:     isCorrect,
		CorrectOption: optionText(a.Options, a.CorrectAnswer),
		Score:         scoreAnswer(isCorrect, responseTimeMs),
	}
	return feedback, projectQuiz(a), nil
}

// SubmitWord appends a trimmed word to the cloud. No dedup and no cap on a
// participant's word count.
func (e *Engine) SubmitWord(activityID uuid.UUID, identity, text, name string) (*models.WordCloudResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.IsActive {
		return nil, ErrSessionEnded
	}
	a, err := e.activityLocked(activityID, models.ActivityWordCloud)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptySubmission
	}
	a.Words = append(a.Words, models.WordEntry{
		Identity:    identity,
		Text:        text,
		Name:        name,
		SubmittedAt: time.Now(),
	})
	return projectWordCloud(a), nil
}

// SubmitQuestion appends a Q&A question with a fresh id and no upvotes.
func (e *Engine) SubmitQuestion(activityID uuid.UUID, identity, text, name string) (*models.QAResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.IsActive {
		return nil, ErrSessionEnded
	}
	a, err := e.activityLocked(activityID, models.ActivityQA)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptySubmission
	}
	a.Questions = append(a.Questions, &models.AudienceQuestion{
		ID:          uuid.New(),
		Identity:    identity,
		Text:        text,
		Name:        name,
		SubmittedAt: time.Now(),
		Upvoters:    make(map[string]struct{}),
	})
	return projectQA(a), nil
}

// ToggleUpvote adds identity to the question's upvoter set, or removes it if
// already present. Toggling twice restores the original count.
func (e *Engine) ToggleUpvote(activityID, questionID uuid.UUID, identity string) (*models.QAResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.activityLocked(activityID, models.ActivityQA)
	if err != nil {
		return nil, err
	}
	for _, q := range a.Questions {
		if q.ID == questionID {
			if _, voted := q.Upvoters[identity]; voted {
				delete(q.Upvoters, identity)
			} else {
				q.Upvoters[identity] = struct{}{}
			}
			return projectQA(a), nil
		}
	}
	return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
}

// AddParticipant inserts or replaces a roster entry and returns the new
// participant count. Joining an ended session is rejected.
func (e *Engine) AddParticipant(identity, name string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.s.IsActive {
		return 0, ErrSessionEnded
	}
	if name == "" {
		name = defaultParticipantName
	}
	e.s.Participants[identity] = &models.Participant{
		Identity: identity,
		Name:     name,
		JoinedAt: time.Now(),
	}
	return len(e.s.Participants), nil
}

// RemoveParticipant deletes a roster entry and returns the new count.
func (e *Engine) RemoveParticipant(identity string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.s.Participants, identity)
	return len(e.s.Participants)
}

// ParticipantCount returns the roster size.
func (e *Engine) ParticipantCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.s.Participants)
}

// ParticipantList returns the roster in join order.
func (e *Engine) ParticipantList() []models.ParticipantInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := make([]models.ParticipantInfo, 0, len(e.s.Participants))
	for _, p := range e.s.Participants {
		list = append(list, models.ParticipantInfo{Name: p.Name, JoinedAt: p.JoinedAt})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].JoinedAt.Before(list[j].JoinedAt) })
	return list
}

// OverallLeaderboard aggregates per display name across all quiz activities.
// Two participants who chose the same name are merged; that keying matches
// the presenter-facing leaderboard, which shows names, not connections.
func (e *Engine) OverallLeaderboard() []models.LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overallLeaderboardLocked()
}

// End marks the session inactive and returns the final leaderboard. State is
// not deleted; results remain queryable. No mutating submission is accepted
// afterwards.
func (e *Engine) End() []models.LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.s.IsActive = false
	return e.overallLeaderboardLocked()
}

// Projection returns the recomputed result view for one activity.
func (e *Engine) Projection(activityID uuid.UUID) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.s.Activities {
		if a.ID == activityID {
			return project(a), nil
		}
	}
	return nil, fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
}

// CurrentProjection returns the result view for the activity at the cursor.
func (e *Engine) CurrentProjection() (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.currentLocked()
	if a == nil {
		return nil, false
	}
	return project(a), true
}

// Summary returns the read-only snapshot of the whole session.
func (e *Engine) Summary() models.SessionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	activities := make([]models.ActivitySummary, len(e.s.Activities))
	for i, a := range e.s.Activities {
		activities[i] = models.ActivitySummary{
			ID:            a.ID,
			Kind:          a.Kind,
			Question:      a.Question,
			Options:       a.Options,
			IsOpen:        a.IsOpen,
			ResponseCount: a.ResponseCount(),
		}
	}
	return models.SessionSummary{
		ID:                   e.s.ID,
		Code:                 e.s.Code,
		Name:                 e.s.Name,
		CreatedAt:            e.s.CreatedAt,
		CurrentActivityIndex: e.s.CurrentActivityIndex,
		ParticipantCount:     len(e.s.Participants),
		ActivityCount:        len(e.s.Activities),
		IsActive:             e.s.IsActive,
		Activities:           activities,
	}
}

func (e *Engine) currentLocked() *models.Activity {
	if e.s.CurrentActivityIndex >= 0 && e.s.CurrentActivityIndex < len(e.s.Activities) {
		return e.s.Activities[e.s.CurrentActivityIndex]
	}
	return nil
}

func (e *Engine) closeCurrentLocked() {
	if a := e.currentLocked(); a != nil {
		a.IsOpen = false
	}
}

func (e *Engine) activityLocked(id uuid.UUID, kind models.ActivityKind) (*models.Activity, error) {
	for _, a := range e.s.Activities {
		if a.ID == id {
			if a.Kind != kind {
				return nil, fmt.Errorf("activity %s is %s, not %s: %w", id, a.Kind, kind, ErrNotFound)
			}
			return a, nil
		}
	}
	return nil, fmt.Errorf("activity %s: %w", id, ErrNotFound)
}

func (e *Engine) overallLeaderboardLocked() []models.LeaderboardEntry {
	type tally struct {
		correct int
		total   int
	}
	byName := make(map[string]*tally)
	order := make([]string, 0)
	for _, a := range e.s.Activities {
		if a.Kind != models.ActivityQuiz {
			continue
		}
		for _, r := range a.QuizResponses {
			t, ok := byName[r.Name]
			if !ok {
				t = &tally{}
				byName[r.Name] = t
				order = append(order, r.Name)
			}
			t.total++
			if r.IsCorrect {
				t.correct++
			}
		}
	}

	leaderboard := make([]models.LeaderboardEntry, 0, len(order))
	for _, name := range order {
		t := byName[name]
		accuracy := 0
		if t.total > 0 {
			accuracy = int(float64(t.correct)/float64(t.total)*100 + 0.5)
		}
		leaderboard = append(leaderboard, models.LeaderboardEntry{
			Name:     name,
			Correct:  t.correct,
			Total:    t.total,
			Accuracy: accuracy,
		})
	}
	sort.SliceStable(leaderboard, func(i, j int) bool {
		if leaderboard[i].Correct != leaderboard[j].Correct {
			return leaderboard[i].Correct > leaderboard[j].Correct
		}
		return leaderboard[i].Accuracy > leaderboard[j].Accuracy
	})
	return leaderboard
}

// scoreAnswer computes the speed-bonus score: quizBaseScore at 0ms decaying
// linearly to quizBaseScore-quizSpeedBonus at quizMaxResponseMs and beyond.
// Incorrect answers always score 0.
func scoreAnswer(isCorrect bool, responseTimeMs int) int {
	if !isCorrect {
		return 0
	}
	t := responseTimeMs
	if t < 0 {
		t = 0
	}
	if t > quizMaxResponseMs {
		t = quizMaxResponseMs
	}
	return quizBaseScore - quizSpeedBonus*t/quizMaxResponseMs
}
