package realtime

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/majjihemanthkumar/mentimeter/internal/session"
)

func newCoordinatorFixture() (*Coordinator, *Hub) {
	dir := session.NewDirectory(session.NewAllocator())
	hub := NewHub(zap.NewNop(), nil, "instance-1")
	return NewCoordinator(dir, hub, zap.NewNop()), hub
}

func dispatch(co *Coordinator, c *Client, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	co.HandleEvent(c, WSMessage{Event: event, Data: data})
}

func findEvent(msgs []WSMessage, event string) (WSMessage, bool) {
	for _, m := range msgs {
		if m.Event == event {
			return m, true
		}
	}
	return WSMessage{}, false
}

// setupSession creates a session through the coordinator and returns its code
// with the hub-registered presenter connection drained.
func setupSession(t *testing.T, co *Coordinator, hub *Hub) (presenter *Client, code string) {
	t.Helper()
	presenter = newTestClient("presenter")
	hub.Register(presenter)
	dispatch(co, presenter, EventCreateSession, map[string]string{"name": "Demo"})

	msgs := drain(presenter)
	created, ok := findEvent(msgs, EventSessionCreated)
	require.True(t, ok)
	var reply struct {
		Session struct {
			Code string `json:"code"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(created.Data, &reply))
	require.Len(t, reply.Session.Code, 6)
	return presenter, reply.Session.Code
}

// joinAs joins a participant through the coordinator and drains the resulting
// traffic on both ends.
func joinAs(t *testing.T, co *Coordinator, hub *Hub, code, id, name string) *Client {
	t.Helper()
	c := newTestClient(id)
	hub.Register(c)
	dispatch(co, c, EventJoinSession, map[string]string{"code": code, "name": name})
	msgs := drain(c)
	_, ok := findEvent(msgs, EventSessionJoined)
	require.True(t, ok, "join must be acknowledged")
	return c
}

// addAndLaunch authors one activity and launches it, returning its id.
func addAndLaunch(t *testing.T, co *Coordinator, presenter *Client, code string, payload map[string]interface{}) string {
	t.Helper()
	payload["code"] = code
	dispatch(co, presenter, EventAddActivity, payload)
	added, ok := findEvent(drain(presenter), EventActivityAdded)
	require.True(t, ok)
	var reply struct {
		Activity struct {
			ID string `json:"id"`
		} `json:"activity"`
	}
	require.NoError(t, json.Unmarshal(added.Data, &reply))

	dispatch(co, presenter, EventLaunchActivity, map[string]interface{}{"code": code, "index": 0})
	_, ok = findEvent(drain(presenter), EventActivityLaunched)
	require.True(t, ok)
	return reply.Activity.ID
}

func TestCreateSessionAck(t *testing.T) {
	co, hub := newCoordinatorFixture()
	_, code := setupSession(t, co, hub)
	assert.Equal(t, 1, hub.RoomSize(code), "presenter joins the room on create")
}

func TestJoinUnknownCode(t *testing.T) {
	co, hub := newCoordinatorFixture()
	c := newTestClient("p1")
	hub.Register(c)

	dispatch(co, c, EventJoinSession, map[string]string{"code": "000000", "name": "Ann"})

	msgs := drain(c)
	errMsg, ok := findEvent(msgs, EventError)
	require.True(t, ok)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(errMsg.Data, &payload))
	assert.Equal(t, "not_found", payload.Code)
	assert.Equal(t, EventJoinSession, payload.Event)
}

func TestJoinNotifiesPresenter(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)

	joinAs(t, co, hub, code, "p1", "Ann")

	joined, ok := findEvent(drain(presenter), EventParticipantJoined)
	require.True(t, ok)
	var payload struct {
		ParticipantCount int    `json:"participantCount"`
		Name             string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(joined.Data, &payload))
	assert.Equal(t, 1, payload.ParticipantCount)
	assert.Equal(t, "Ann", payload.Name)
}

func TestNonPresenterCannotLaunch(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	dispatch(co, presenter, EventAddActivity, map[string]interface{}{
		"code": code, "type": "poll", "question": "Q?", "options": []string{"a", "b"},
	})
	drain(presenter)

	p1 := joinAs(t, co, hub, code, "p1", "Ann")
	dispatch(co, p1, EventLaunchActivity, map[string]interface{}{"code": code, "index": 0})

	errMsg, ok := findEvent(drain(p1), EventError)
	require.True(t, ok)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(errMsg.Data, &payload))
	assert.Equal(t, "unauthorized", payload.Code)
}

func TestLaunchReachesRoom(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	p1 := joinAs(t, co, hub, code, "p1", "Ann")
	drain(presenter)

	addAndLaunch(t, co, presenter, code, map[string]interface{}{
		"type": "poll", "question": "Best season?", "options": []string{"summer", "winter"},
	})

	launched, ok := findEvent(drain(p1), EventActivityLaunched)
	require.True(t, ok)
	var info struct {
		Question string `json:"question"`
		IsOpen   bool   `json:"isOpen"`
	}
	require.NoError(t, json.Unmarshal(launched.Data, &info))
	assert.Equal(t, "Best season?", info.Question)
	assert.True(t, info.IsOpen)
}

func TestVoteFanout(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	p1 := joinAs(t, co, hub, code, "p1", "Ann")
	p2 := joinAs(t, co, hub, code, "p2", "Bob")
	drain(presenter)
	drain(p1)

	activityID := addAndLaunch(t, co, presenter, code, map[string]interface{}{
		"type": "poll", "question": "Q?", "options": []string{"a", "b"},
	})
	drain(p1)
	drain(p2)

	dispatch(co, p1, EventSubmitVote, map[string]interface{}{
		"code": code, "activityId": activityID, "optionIndex": 1,
	})

	for _, c := range []*Client{presenter, p2, p1} {
		results, ok := findEvent(drain(c), EventPollResults)
		require.True(t, ok, "client %s must see poll results", c.ID)
		var payload struct {
			TotalVotes int `json:"totalVotes"`
		}
		require.NoError(t, json.Unmarshal(results.Data, &payload))
		assert.Equal(t, 1, payload.TotalVotes)
	}
}

func TestQuizFeedbackScoping(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	answerer := joinAs(t, co, hub, code, "p1", "Ann")
	bystander := joinAs(t, co, hub, code, "p2", "Bob")
	drain(presenter)
	drain(answerer)

	activityID := addAndLaunch(t, co, presenter, code, map[string]interface{}{
		"type": "quiz", "question": "2+2?", "options": []string{"3", "4"}, "correctAnswer": 1,
	})
	drain(answerer)
	drain(bystander)

	dispatch(co, answerer, EventSubmitAnswer, map[string]interface{}{
		"code": code, "activityId": activityID, "optionIndex": 1, "responseTimeMs": 1500,
	})

	feedback, ok := findEvent(drain(answerer), EventQuizFeedback)
	require.True(t, ok, "answerer gets private feedback")
	var fb struct {
		IsCorrect     bool   `json:"isCorrect"`
		CorrectOption string `json:"correctOption"`
	}
	require.NoError(t, json.Unmarshal(feedback.Data, &fb))
	assert.True(t, fb.IsCorrect)
	assert.Equal(t, "4", fb.CorrectOption)

	_, ok = findEvent(drain(presenter), EventQuizResults)
	assert.True(t, ok, "presenter gets the projection")

	assert.Empty(t, drain(bystander), "other participants must see neither feedback nor results")
}

func TestDuplicateAnswerRejected(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	p1 := joinAs(t, co, hub, code, "p1", "Ann")
	drain(presenter)
	activityID := addAndLaunch(t, co, presenter, code, map[string]interface{}{
		"type": "quiz", "question": "Q?", "options": []string{"a", "b"}, "correctAnswer": 0,
	})
	drain(p1)

	answer := map[string]interface{}{
		"code": code, "activityId": activityID, "optionIndex": 0, "responseTimeMs": 100,
	}
	dispatch(co, p1, EventSubmitAnswer, answer)
	drain(p1)
	dispatch(co, p1, EventSubmitAnswer, answer)

	errMsg, ok := findEvent(drain(p1), EventError)
	require.True(t, ok)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(errMsg.Data, &payload))
	assert.Equal(t, "duplicate_answer", payload.Code)
}

func TestEndSessionScoping(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	p1 := joinAs(t, co, hub, code, "p1", "Ann")
	drain(presenter)

	dispatch(co, presenter, EventEndSession, map[string]string{"code": code})

	ended, ok := findEvent(drain(presenter), EventSessionEnded)
	require.True(t, ok)
	assert.Contains(t, string(ended.Data), "leaderboard", "presenter receives the leaderboard")

	ended, ok = findEvent(drain(p1), EventSessionEnded)
	require.True(t, ok)
	assert.NotContains(t, string(ended.Data), "leaderboard", "audience copy carries no leaderboard")
}

func TestParticipantDisconnect(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	p1 := joinAs(t, co, hub, code, "p1", "Ann")
	drain(presenter)

	co.HandleDisconnect(p1)
	hub.Unregister(p1)

	left, ok := findEvent(drain(presenter), EventParticipantLeft)
	require.True(t, ok)
	var payload struct {
		ParticipantCount int `json:"participantCount"`
	}
	require.NoError(t, json.Unmarshal(left.Data, &payload))
	assert.Equal(t, 0, payload.ParticipantCount)
}

func TestPresenterDisconnectKeepsSession(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	p1 := joinAs(t, co, hub, code, "p1", "Ann")
	drain(presenter)

	co.HandleDisconnect(presenter)
	hub.Unregister(presenter)

	_, ok := findEvent(drain(p1), EventPresenterDisconnected)
	assert.True(t, ok)

	// The session stays registered; the same participant can still submit.
	activityID := func() string {
		e, found := co.dir.LookupByCode(code)
		require.True(t, found)
		info := e.CreateActivity(session.ActivitySpec{Kind: "wordcloud", Question: "Word?"})
		return info.ID.String()
	}()
	dispatch(co, p1, EventSubmitWord, map[string]interface{}{
		"code": code, "activityId": activityID, "word": "resilient",
	})
	_, ok = findEvent(drain(p1), EventWordCloudResults)
	assert.True(t, ok)
}

func TestUpvoteFlow(t *testing.T) {
	co, hub := newCoordinatorFixture()
	presenter, code := setupSession(t, co, hub)
	asker := joinAs(t, co, hub, code, "p1", "Ann")
	voter := joinAs(t, co, hub, code, "p2", "Bob")
	drain(presenter)
	drain(asker)
	activityID := addAndLaunch(t, co, presenter, code, map[string]interface{}{
		"type": "qa", "question": "AMA",
	})
	drain(asker)
	drain(voter)

	dispatch(co, asker, EventSubmitQuestion, map[string]interface{}{
		"code": code, "activityId": activityID, "question": "Why websockets?",
	})
	results, ok := findEvent(drain(voter), EventQAResults)
	require.True(t, ok)
	var qa struct {
		Questions []struct {
			ID          string `json:"id"`
			UpvoteCount int    `json:"upvoteCount"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(results.Data, &qa))
	require.Len(t, qa.Questions, 1)

	dispatch(co, voter, EventUpvoteQuestion, map[string]interface{}{
		"code": code, "activityId": activityID, "questionId": qa.Questions[0].ID,
	})
	results, ok = findEvent(drain(voter), EventQAResults)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(results.Data, &qa))
	assert.Equal(t, 1, qa.Questions[0].UpvoteCount)
}

func TestMalformedPayload(t *testing.T) {
	co, hub := newCoordinatorFixture()
	c := newTestClient("p1")
	hub.Register(c)

	co.HandleEvent(c, WSMessage{Event: EventJoinSession, Data: json.RawMessage(`{"code":`)})

	errMsg, ok := findEvent(drain(c), EventError)
	require.True(t, ok)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(errMsg.Data, &payload))
	assert.Equal(t, "bad_request", payload.Code)
}

func TestUnknownEventIgnored(t *testing.T) {
	co, hub := newCoordinatorFixture()
	c := newTestClient("p1")
	hub.Register(c)

	co.HandleEvent(c, WSMessage{Event: "bogus-event", Data: json.RawMessage(`{}`)})
	assert.Empty(t, drain(c))
}

func TestTaxonomyCodes(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{session.ErrUnauthorized, "unauthorized"},
		{session.ErrInvalidTransition, "invalid_transition"},
		{session.ErrDuplicateAnswer, "duplicate_answer"},
		{session.ErrSessionEnded, "session_ended"},
		{session.ErrEmptySubmission, "empty_submission"},
		{session.ErrNotFound, "not_found"},
		{fmt.Errorf("wrapped: %w", session.ErrNotFound), "not_found"},
		{errBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, taxonomyCode(tc.err), "error %v", tc.err)
	}
}
