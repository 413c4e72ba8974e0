package server

import (
	"net/http"
	"testing"

	"vexillum/internal/models"
	"vexillum/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type designDetailBody struct {
	Design struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Hashtags *string `json:"hashtags"`
		ImageURL string  `json:"image_url"`
	} `json:"design"`
	Comments []models.Comment    `json:"comments"`
	Rating   models.RatingSummary `json:"rating"`
}

func TestSubmitDesign(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	token := ts.tokenFor(t, alice)

	t.Run("requires auth", func(t *testing.T) {
		resp := ts.sendForm(t, http.MethodPost, "/api/designs", map[string]string{"title": "Maple"}, tinyPNG(t, 4, 4), "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("requires image", func(t *testing.T) {
		resp := ts.sendForm(t, http.MethodPost, "/api/designs", map[string]string{"title": "Maple"}, nil, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, models.CodeValidation, errorCode(t, resp))
	})

	t.Run("requires title", func(t *testing.T) {
		resp := ts.sendForm(t, http.MethodPost, "/api/designs", map[string]string{"title": "  "}, tinyPNG(t, 4, 4), token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("stores and serves the image", func(t *testing.T) {
		id := ts.submitDesign(t, token, "Maple", "#leaf  #red")

		resp := ts.get(t, "/api/designs/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var detail designDetailBody
		decode(t, resp, &detail)
		assert.Equal(t, "Maple", detail.Design.Title)
		require.NotNil(t, detail.Design.Hashtags)
		assert.Equal(t, "#leaf #red", *detail.Design.Hashtags)
		assert.Empty(t, detail.Comments)
		assert.Nil(t, detail.Rating.Mean)
		assert.Zero(t, detail.Rating.Display)

		require.NotEmpty(t, detail.Design.ImageURL)
		img := ts.get(t, detail.Design.ImageURL, "")
		assert.Equal(t, http.StatusOK, img.StatusCode)
	})
}

func TestGetDesign_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/api/designs/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, errorCode(t, resp))
}

func TestRateDesign(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	bob := ts.createUser(t, "bob", false)
	id := ts.submitDesign(t, ts.tokenFor(t, alice), "Maple", "")
	bobToken := ts.tokenFor(t, bob)

	resp := ts.sendJSON(t, http.MethodPost, "/api/designs/"+id+"/rate", map[string]int{"rating": 8}, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Submitted bool                 `json:"submitted"`
		Warning   string               `json:"warning"`
		Rating    models.RatingSummary `json:"rating"`
	}
	decode(t, resp, &result)
	assert.True(t, result.Submitted)
	require.NotNil(t, result.Rating.Mean)
	assert.Equal(t, 8.0, *result.Rating.Mean)
	require.NotNil(t, result.Rating.Mine)
	assert.Equal(t, 8, *result.Rating.Mine)

	// Out of range is ignored, not an error.
	resp = ts.sendJSON(t, http.MethodPost, "/api/designs/"+id+"/rate", map[string]int{"rating": 11}, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result.Warning = ""
	decode(t, resp, &result)
	assert.False(t, result.Submitted)
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, int64(1), result.Rating.Count)

	// Re-rating replaces the earlier value.
	resp = ts.sendJSON(t, http.MethodPost, "/api/designs/"+id+"/rate", map[string]int{"rating": 5}, bobToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.get(t, "/api/designs/"+id, bobToken)
	var detail designDetailBody
	decode(t, resp, &detail)
	assert.Equal(t, int64(1), detail.Rating.Count)
	require.NotNil(t, detail.Rating.Mine)
	assert.Equal(t, 5, *detail.Rating.Mine)

	resp = ts.sendJSON(t, http.MethodPost, "/api/designs/"+id+"/rate", map[string]int{"rating": 5}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.sendJSON(t, http.MethodPost, "/api/designs/missing/rate", map[string]int{"rating": 5}, bobToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDesignComments(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	bob := ts.createUser(t, "bob", false)
	id := ts.submitDesign(t, ts.tokenFor(t, alice), "Maple", "")

	resp := ts.sendJSON(t, http.MethodPost, "/api/designs/"+id+"/comments", map[string]string{"content": "Love it"}, ts.tokenFor(t, bob))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.sendJSON(t, http.MethodPost, "/api/designs/"+id+"/comments", map[string]string{"content": ""}, ts.tokenFor(t, bob))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.get(t, "/api/designs/"+id, "")
	var detail designDetailBody
	decode(t, resp, &detail)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "Love it", detail.Comments[0].Content)
	assert.Equal(t, bob.ID, detail.Comments[0].UserID)
}

func TestUpdateAndDeleteDesign_Guard(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	mallory := ts.createUser(t, "mallory", false)
	admin := ts.createUser(t, "root", true)
	aliceToken := ts.tokenFor(t, alice)
	id := ts.submitDesign(t, aliceToken, "Maple", "#leaf")

	resp := ts.sendForm(t, http.MethodPut, "/api/designs/"+id, map[string]string{"title": "Hijacked"}, nil, ts.tokenFor(t, mallory))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, errorCode(t, resp))

	resp = ts.sendForm(t, http.MethodPut, "/api/designs/"+id, map[string]string{"title": "Maple II"}, nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated struct {
		Title    string  `json:"title"`
		Hashtags *string `json:"hashtags"`
	}
	decode(t, resp, &updated)
	assert.Equal(t, "Maple II", updated.Title)
	require.NotNil(t, updated.Hashtags, "omitted fields stay unchanged")
	assert.Equal(t, "#leaf", *updated.Hashtags)

	resp = ts.sendForm(t, http.MethodPut, "/api/designs/"+id, map[string]string{"remove_image": "true"}, nil, aliceToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, newRequest(http.MethodDelete, "/api/designs/"+id), ts.tokenFor(t, mallory))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, newRequest(http.MethodDelete, "/api/designs/"+id), ts.tokenFor(t, admin))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.get(t, "/api/designs/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListDesigns(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	token := ts.tokenFor(t, alice)
	ts.submitDesign(t, token, "Maple Leaf", "#leaf")
	ts.submitDesign(t, token, "Southern Cross", "#stars")
	ts.submitDesign(t, token, "Tricolour", "")

	type listBody struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
		Page       int   `json:"page"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	}

	resp := ts.get(t, "/api/designs?sort=newest", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all listBody
	decode(t, resp, &all)
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, 1, all.TotalPages)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "Tricolour", all.Items[0].Title)
	assert.Equal(t, "Maple Leaf", all.Items[2].Title)

	resp = ts.get(t, "/api/designs?q=stars", "")
	var search listBody
	decode(t, resp, &search)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "Southern Cross", search.Items[0].Title)

	resp = ts.get(t, "/api/designs?sort=sideways&rating=eleven&page=zero", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lenient listBody
	decode(t, resp, &lenient)
	assert.Len(t, lenient.Items, 3)
	assert.Equal(t, 1, lenient.Page)

	resp = ts.get(t, "/api/designs?page=9", "")
	var beyond listBody
	decode(t, resp, &beyond)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(3), beyond.Total)

	resp = ts.get(t, "/api/designs?page=9223372036854775807", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var huge listBody
	decode(t, resp, &huge)
	assert.Empty(t, huge.Items)
	assert.Equal(t, maxPage, huge.Page)

	resp = ts.get(t, "/api/users/"+itoa(alice.ID)+"/designs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []struct {
		Title string `json:"title"`
	}
	decode(t, resp, &mine)
	require.Len(t, mine, 3)
	assert.Equal(t, "Tricolour", mine[0].Title)

	resp = ts.get(t, "/api/users/abc/designs", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTagEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.tokenFor(t, ts.createUser(t, "alice", false))
	ts.submitDesign(t, token, "One", "#Vector #funny")
	ts.submitDesign(t, token, "Two", "#vector #emblem")

	resp := ts.get(t, "/api/tags", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []taxonomy.TagCount
	decode(t, resp, &all)
	require.Len(t, all, 3)
	assert.Equal(t, taxonomy.TagCount{Tag: "#vector", Count: 2}, all[0])

	resp = ts.get(t, "/api/tags/top", "")
	var top []taxonomy.TagCount
	decode(t, resp, &top)
	assert.Len(t, top, 3)

	resp = ts.get(t, "/api/tags/unique", "")
	var unique []string
	decode(t, resp, &unique)
	assert.Equal(t, []string{"#emblem", "#funny", "#vector"}, unique)
}
