package realtime

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/majjihemanthkumar/mentimeter/internal/models"
	"github.com/majjihemanthkumar/mentimeter/internal/session"
)

// Inbound event names (client -> engine).
const (
	EventCreateSession   = "create-session"
	EventJoinSession     = "join-session"
	EventAddActivity     = "add-activity"
	EventLaunchActivity  = "launch-activity"
	EventNextActivity    = "next-activity"
	EventPrevActivity    = "prev-activity"
	EventSubmitVote      = "submit-vote"
	EventSubmitAnswer    = "submit-answer"
	EventSubmitWord      = "submit-word"
	EventSubmitQuestion  = "submit-question"
	EventUpvoteQuestion  = "upvote-question"
	EventEndSession      = "end-session"
	EventShowLeaderboard = "show-leaderboard"
	EventCloseActivity   = "close-activity"
)

// Outbound event names (engine -> listeners).
const (
	EventSessionCreated        = "session-created"
	EventSessionJoined         = "session-joined"
	EventActivityAdded         = "activity-added"
	EventActivityLaunched      = "activity-launched"
	EventActivityClosed        = "activity-closed"
	EventParticipantJoined     = "participant-joined"
	EventParticipantLeft       = "participant-left"
	EventPollResults           = "poll-results"
	EventQuizResults           = "quiz-results"
	EventQuizFeedback          = "quiz-feedback"
	EventWordCloudResults      = "wordcloud-results"
	EventQAResults             = "qa-results"
	EventSessionEnded          = "session-ended"
	EventLeaderboardReveal     = "leaderboard-reveal"
	EventPresenterDisconnected = "presenter-disconnected"
	EventError                 = "error"
)

// errorPayload is sent back to the acting connection when an inbound event is
// rejected, carrying the failure taxonomy instead of silently dropping.
type errorPayload struct {
	Event string `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Coordinator feeds inbound events into the session engine and fans the
// resulting projections out with the required audience scoping: presenter
// only, whole room minus the acting connection, or the actor alone.
type Coordinator struct {
	dir    *session.Directory
	hub    *Hub
	logger *zap.Logger
}

// NewCoordinator wires the directory and hub together.
func NewCoordinator(dir *session.Directory, hub *Hub, logger *zap.Logger) *Coordinator {
	return &Coordinator{dir: dir, hub: hub, logger: logger}
}

// HandleEvent dispatches one inbound message from a connection. Each branch
// runs its engine mutation and aggregation atomically (the engine holds the
// session lock) before any broadcast reads the projection.
func (co *Coordinator) HandleEvent(c *Client, msg WSMessage) {
	switch msg.Event {
	case EventCreateSession:
		co.createSession(c, msg.Data)
	case EventJoinSession:
		co.joinSession(c, msg.Data)
	case EventAddActivity:
		co.addActivity(c, msg.Data)
	case EventLaunchActivity:
		co.launchActivity(c, msg.Data)
	case EventNextActivity:
		co.navigate(c, msg.Event, msg.Data, (*session.Engine).Advance)
	case EventPrevActivity:
		co.navigate(c, msg.Event, msg.Data, (*session.Engine).Retreat)
	case EventSubmitVote:
		co.submitVote(c, msg.Data)
	case EventSubmitAnswer:
		co.submitAnswer(c, msg.Data)
	case EventSubmitWord:
		co.submitWord(c, msg.Data)
	case EventSubmitQuestion:
		co.submitQuestion(c, msg.Data)
	case EventUpvoteQuestion:
		co.upvoteQuestion(c, msg.Data)
	case EventEndSession:
		co.endSession(c, msg.Data)
	case EventShowLeaderboard:
		co.showLeaderboard(c, msg.Data)
	case EventCloseActivity:
		co.closeActivity(c, msg.Data)
	default:
		co.logger.Debug("unknown event", zap.String("event", msg.Event))
	}
}

// HandleDisconnect notifies the session a connection belonged to. A presenter
// disconnect is purely a notification; the session stays registered.
func (co *Coordinator) HandleDisconnect(c *Client) {
	e, ok := co.dir.LookupByIdentity(c.ID)
	if !ok {
		return
	}
	if e.IsPresenter(c.ID) {
		co.hub.BroadcastToRoomExcept(e.Code(), c.ID, EventPresenterDisconnected, map[string]string{
			"message": "The presenter has disconnected.",
		})
		co.logger.Info("presenter disconnected", zap.String("code", e.Code()))
		return
	}
	count := e.RemoveParticipant(c.ID)
	co.hub.SendToClient(e.PresenterIdentity(), EventParticipantLeft, map[string]interface{}{
		"participantCount": count,
		"participants":     e.ParticipantList(),
	})
}

func (co *Coordinator) createSession(c *Client, data json.RawMessage) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, EventCreateSession, errBadRequest)
		return
	}
	e := co.dir.Create(req.Name, c.ID)
	co.hub.JoinRoom(e.Code(), c)
	co.logger.Info("session created", zap.String("code", e.Code()), zap.String("presenter", c.ID))
	co.hub.SendToClient(c.ID, EventSessionCreated, map[string]interface{}{
		"session": e.Summary(),
	})
}

func (co *Coordinator) joinSession(c *Client, data json.RawMessage) {
	var req struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, EventJoinSession, errBadRequest)
		return
	}
	e, ok := co.dir.LookupByCode(req.Code)
	if !ok {
		co.sendError(c, EventJoinSession, session.ErrNotFound)
		return
	}
	count, err := e.AddParticipant(c.ID, req.Name)
	if err != nil {
		co.sendError(c, EventJoinSession, err)
		return
	}
	co.hub.JoinRoom(req.Code, c)
	co.logger.Info("participant joined", zap.String("code", req.Code), zap.String("name", e.ParticipantName(c.ID)))

	co.hub.SendToClient(e.PresenterIdentity(), EventParticipantJoined, map[string]interface{}{
		"participantCount": count,
		"name":             e.ParticipantName(c.ID),
		"participants":     e.ParticipantList(),
	})

	reply := map[string]interface{}{
		"sessionName":      e.Name(),
		"participantCount": count,
		"currentActivity":  nil,
	}
	if info, ok := e.CurrentActivity(); ok {
		reply["currentActivity"] = info
	}
	co.hub.SendToClient(c.ID, EventSessionJoined, reply)
}

func (co *Coordinator) addActivity(c *Client, data json.RawMessage) {
	var req struct {
		Code          string   `json:"code"`
		Type          string   `json:"type"`
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer *int     `json:"correctAnswer"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, EventAddActivity, errBadRequest)
		return
	}
	e, err := co.presenterSession(c, req.Code)
	if err != nil {
		co.sendError(c, EventAddActivity, err)
		return
	}
	info := e.CreateActivity(session.ActivitySpec{
		Kind:          models.ActivityKind(req.Type),
		Question:      req.Question,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
	})
	co.logger.Info("activity added", zap.String("code", req.Code), zap.String("type", req.Type))
	co.hub.SendToClient(c.ID, EventActivityAdded, map[string]interface{}{
		"activity": info,
		"session":  e.Summary(),
	})
}

func (co *Coordinator) launchActivity(c *Client, data json.RawMessage) {
	var req struct {
		Code  string `json:"code"`
		Index int    `json:"index"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, EventLaunchActivity, errBadRequest)
		return
	}
	e, err := co.presenterSession(c, req.Code)
	if err != nil {
		co.sendError(c, EventLaunchActivity, err)
		return
	}
	info, err := e.Launch(req.Index)
	if err != nil {
		co.sendError(c, EventLaunchActivity, err)
		return
	}
	co.logger.Info("activity launched", zap.String("code", req.Code), zap.Int("index", req.Index))
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventActivityLaunched, info)
	co.hub.SendToClient(c.ID, EventActivityLaunched, map[string]interface{}{
		"activity": info,
		"session":  e.Summary(),
	})
}

func (co *Coordinator) navigate(c *Client, event string, data json.RawMessage, step func(*session.Engine) (models.ActivityInfo, error)) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, event, errBadRequest)
		return
	}
	e, err := co.presenterSession(c, req.Code)
	if err != nil {
		co.sendError(c, event, err)
		return
	}
	info, err := step(e)
	if err != nil {
		co.sendError(c, event, err)
		return
	}
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventActivityLaunched, info)
	co.hub.SendToClient(c.ID, EventActivityLaunched, map[string]interface{}{
		"activity": info,
		"session":  e.Summary(),
	})
}

func (co *Coordinator) submitVote(c *Client, data json.RawMessage) {
	var req struct {
		Code        string `json:"code"`
		ActivityID  string `json:"activityId"`
		OptionIndex int    `json:"optionIndex"`
	}
	e, activityID, err := co.submissionTarget(c, EventSubmitVote, data, &req, &req.Code, &req.ActivityID)
	if err != nil {
		return
	}
	results, err := e.SubmitPollVote(activityID, c.ID, req.OptionIndex, e.ParticipantName(c.ID))
	if err != nil {
		co.sendError(c, EventSubmitVote, err)
		return
	}
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventPollResults, results)
	co.hub.SendToClient(c.ID, EventPollResults, results)
}

func (co *Coordinator) submitAnswer(c *Client, data json.RawMessage) {
	var req struct {
		Code           string `json:"code"`
		ActivityID     string `json:"activityId"`
		OptionIndex    int    `json:"optionIndex"`
		ResponseTimeMs int    `json:"responseTimeMs"`
	}
	e, activityID, err := co.submissionTarget(c, EventSubmitAnswer, data, &req, &req.Code, &req.ActivityID)
	if err != nil {
		return
	}
	feedback, results, err := e.SubmitQuizAnswer(activityID, c.ID, req.OptionIndex, e.ParticipantName(c.ID), req.ResponseTimeMs)
	if err != nil {
		co.sendError(c, EventSubmitAnswer, err)
		return
	}
	// Feedback goes to the answering participant alone; the full projection
	// with the correct option goes to the presenter only.
	co.hub.SendToClient(c.ID, EventQuizFeedback, feedback)
	co.hub.SendToClient(e.PresenterIdentity(), EventQuizResults, results)
}

func (co *Coordinator) submitWord(c *Client, data json.RawMessage) {
	var req struct {
		Code       string `json:"code"`
		ActivityID string `json:"activityId"`
		Word       string `json:"word"`
	}
	e, activityID, err := co.submissionTarget(c, EventSubmitWord, data, &req, &req.Code, &req.ActivityID)
	if err != nil {
		return
	}
	results, err := e.SubmitWord(activityID, c.ID, req.Word, e.ParticipantName(c.ID))
	if err != nil {
		co.sendError(c, EventSubmitWord, err)
		return
	}
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventWordCloudResults, results)
	co.hub.SendToClient(c.ID, EventWordCloudResults, results)
}

func (co *Coordinator) submitQuestion(c *Client, data json.RawMessage) {
	var req struct {
		Code       string `json:"code"`
		ActivityID string `json:"activityId"`
		Question   string `json:"question"`
	}
	e, activityID, err := co.submissionTarget(c, EventSubmitQuestion, data, &req, &req.Code, &req.ActivityID)
	if err != nil {
		return
	}
	results, err := e.SubmitQuestion(activityID, c.ID, req.Question, e.ParticipantName(c.ID))
	if err != nil {
		co.sendError(c, EventSubmitQuestion, err)
		return
	}
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventQAResults, results)
	co.hub.SendToClient(c.ID, EventQAResults, results)
}

func (co *Coordinator) upvoteQuestion(c *Client, data json.RawMessage) {
	var req struct {
		Code       string `json:"code"`
		ActivityID string `json:"activityId"`
		QuestionID string `json:"questionId"`
	}
	e, activityID, err := co.submissionTarget(c, EventUpvoteQuestion, data, &req, &req.Code, &req.ActivityID)
	if err != nil {
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		co.sendError(c, EventUpvoteQuestion, errBadRequest)
		return
	}
	results, err := e.ToggleUpvote(activityID, questionID, c.ID)
	if err != nil {
		co.sendError(c, EventUpvoteQuestion, err)
		return
	}
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventQAResults, results)
	co.hub.SendToClient(c.ID, EventQAResults, results)
}

func (co *Coordinator) endSession(c *Client, data json.RawMessage) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, EventEndSession, errBadRequest)
		return
	}
	e, err := co.presenterSession(c, req.Code)
	if err != nil {
		co.sendError(c, EventEndSession, err)
		return
	}
	leaderboard := e.End()
	co.logger.Info("session ended", zap.String("code", req.Code))

	// The audience gets no leaderboard here; it is revealed only on demand.
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventSessionEnded, map[string]string{
		"message": "Session has ended. Thank you!",
	})
	co.hub.SendToClient(c.ID, EventSessionEnded, map[string]interface{}{
		"leaderboard": leaderboard,
	})
}

func (co *Coordinator) showLeaderboard(c *Client, data json.RawMessage) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, EventShowLeaderboard, errBadRequest)
		return
	}
	e, err := co.presenterSession(c, req.Code)
	if err != nil {
		co.sendError(c, EventShowLeaderboard, err)
		return
	}
	payload := map[string]interface{}{"leaderboard": e.OverallLeaderboard()}
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventLeaderboardReveal, payload)
	co.hub.SendToClient(c.ID, EventLeaderboardReveal, payload)
}

func (co *Coordinator) closeActivity(c *Client, data json.RawMessage) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		co.sendError(c, EventCloseActivity, errBadRequest)
		return
	}
	e, err := co.presenterSession(c, req.Code)
	if err != nil {
		co.sendError(c, EventCloseActivity, err)
		return
	}
	info, err := e.CloseCurrent()
	if err != nil {
		co.sendError(c, EventCloseActivity, err)
		return
	}
	payload := map[string]interface{}{"activityId": info.ID}
	co.hub.BroadcastToRoomExcept(req.Code, c.ID, EventActivityClosed, payload)
	co.hub.SendToClient(c.ID, EventActivityClosed, payload)
}

// presenterSession resolves a code and enforces the presenter-only rule: the
// acting identity must be the one that created the session.
func (co *Coordinator) presenterSession(c *Client, code string) (*session.Engine, error) {
	e, ok := co.dir.LookupByCode(code)
	if !ok {
		return nil, session.ErrNotFound
	}
	if !e.IsPresenter(c.ID) {
		return nil, session.ErrUnauthorized
	}
	return e, nil
}

// submissionTarget parses a participant submission payload and resolves its
// session and activity id. On failure it has already sent the error event.
func (co *Coordinator) submissionTarget(c *Client, event string, data json.RawMessage, req interface{}, code, activityID *string) (*session.Engine, uuid.UUID, error) {
	if err := json.Unmarshal(data, req); err != nil {
		co.sendError(c, event, errBadRequest)
		return nil, uuid.Nil, errBadRequest
	}
	e, ok := co.dir.LookupByCode(*code)
	if !ok {
		co.sendError(c, event, session.ErrNotFound)
		return nil, uuid.Nil, session.ErrNotFound
	}
	id, err := uuid.Parse(*activityID)
	if err != nil {
		co.sendError(c, event, errBadRequest)
		return nil, uuid.Nil, errBadRequest
	}
	return e, id, nil
}

var errBadRequest = errors.New("malformed payload")

func (co *Coordinator) sendError(c *Client, event string, err error) {
	co.hub.SendToClient(c.ID, EventError, errorPayload{
		Event: event,
		Code:  taxonomyCode(err),
		Error: err.Error(),
	})
}

// taxonomyCode maps an engine failure to its wire identifier.
func taxonomyCode(err error) string {
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, session.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, session.ErrDuplicateAnswer):
		return "duplicate_answer"
	case errors.Is(err, session.ErrSessionEnded):
		return "session_ended"
	case errors.Is(err, session.ErrEmptySubmission):
		return "empty_submission"
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	default:
		return "bad_request"
	}
}
