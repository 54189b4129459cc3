package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majjihemanthkumar/mentimeter/internal/session"
)

func newTestRouter(dir *session.Directory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(dir).Register(r.Group("/api"))
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetSession(t *testing.T) {
	dir := session.NewDirectory(session.NewAllocator())
	e := dir.Create("Weekly Sync", "presenter-1")
	_, err := e.AddParticipant("conn-1", "Ann")
	require.NoError(t, err)
	r := newTestRouter(dir)

	w := doGet(r, "/api/session/"+e.Code())
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Exists           bool   `json:"exists"`
			Name             string `json:"name"`
			Code             string `json:"code"`
			ParticipantCount int    `json:"participantCount"`
			IsActive         bool   `json:"isActive"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Data.Exists)
	assert.Equal(t, "Weekly Sync", body.Data.Name)
	assert.Equal(t, e.Code(), body.Data.Code)
	assert.Equal(t, 1, body.Data.ParticipantCount)
	assert.True(t, body.Data.IsActive)
}

func TestGetSessionNotFound(t *testing.T) {
	r := newTestRouter(session.NewDirectory(session.NewAllocator()))

	w := doGet(r, "/api/session/000000")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "session not found", body.Error)
}

func TestGetResults(t *testing.T) {
	dir := session.NewDirectory(session.NewAllocator())
	e := dir.Create("Demo", "presenter-1")
	r := newTestRouter(dir)

	// Nothing launched yet.
	w := doGet(r, "/api/session/"+e.Code()+"/results")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasActivity":false`)

	info := e.CreateActivity(session.ActivitySpec{
		Kind:     "poll",
		Question: "Tabs or spaces?",
		Options:  []string{"tabs", "spaces"},
	})
	_, err := e.Launch(0)
	require.NoError(t, err)
	_, err = e.SubmitPollVote(info.ID, "conn-1", 1, "Ann")
	require.NoError(t, err)

	w = doGet(r, "/api/session/"+e.Code()+"/results")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			HasActivity bool `json:"hasActivity"`
			Activity    struct {
				Kind       string `json:"type"`
				TotalVotes int    `json:"totalVotes"`
			} `json:"activity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.HasActivity)
	assert.Equal(t, "poll", body.Data.Activity.Kind)
	assert.Equal(t, 1, body.Data.Activity.TotalVotes)
}

func TestGetInfo(t *testing.T) {
	dir := session.NewDirectory(session.NewAllocator())
	e := dir.Create("Demo", "presenter-1")
	e.CreateActivity(session.ActivitySpec{Kind: "wordcloud", Question: "One word?"})
	r := newTestRouter(dir)

	w := doGet(r, "/api/session/"+e.Code()+"/info")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Code                 string `json:"code"`
			ActivityCount        int    `json:"activityCount"`
			CurrentActivityIndex int    `json:"currentActivityIndex"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, e.Code(), body.Data.Code)
	assert.Equal(t, 1, body.Data.ActivityCount)
	assert.Equal(t, -1, body.Data.CurrentActivityIndex)
}
