package server

import (
	"net/http"
	"net/url"
	"testing"

	"vexillum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postBody struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	PostType string  `json:"post_type"`
	Subject  string  `json:"subject"`
	ImageRef *string `json:"image_ref"`
}

func (ts *testServer) createPost(t *testing.T, token string, body map[string]string) postBody {
	t.Helper()
	resp := ts.sendJSON(t, http.MethodPost, "/api/posts", body, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var post postBody
	decode(t, resp, &post)
	return post
}

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	admin := ts.createUser(t, "root", true)
	aliceToken := ts.tokenFor(t, alice)

	post := ts.createPost(t, aliceToken, map[string]string{"title": "Colours", "content": "Which blue?"})
	assert.Equal(t, models.PostTypeDiscussion, post.PostType)
	assert.Equal(t, models.DefaultSubject, post.Subject)
	assert.Nil(t, post.ImageRef)

	resp := ts.sendJSON(t, http.MethodPost, "/api/posts", map[string]string{
		"title": "Vote", "content": "Polls open", "post_type": "announcement",
	}, aliceToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.sendJSON(t, http.MethodPost, "/api/posts", map[string]string{"title": "", "content": "x"}, aliceToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	announcement := ts.createPost(t, ts.tokenFor(t, admin), map[string]string{
		"title": "Vote", "content": "Polls open", "post_type": "announcement", "subject": "Voting Process",
	})
	assert.Equal(t, models.PostTypeAnnouncement, announcement.PostType)

	withImage := ts.sendForm(t, http.MethodPost, "/api/posts", map[string]string{
		"title": "Sketch", "content": "Early draft",
	}, tinyPNG(t, 10, 6), aliceToken)
	require.Equal(t, http.StatusCreated, withImage.StatusCode)
	var sketch postBody
	decode(t, withImage, &sketch)
	require.NotNil(t, sketch.ImageRef)
}

func TestListAndGetPosts(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	admin := ts.createUser(t, "root", true)
	ts.createPost(t, ts.tokenFor(t, alice), map[string]string{"title": "One", "content": "a", "subject": "Symbolism"})
	ts.createPost(t, ts.tokenFor(t, alice), map[string]string{"title": "Two", "content": "b"})
	news := ts.createPost(t, ts.tokenFor(t, admin), map[string]string{"title": "News", "content": "c", "post_type": "announcement"})

	type pageBody struct {
		Items []postBody `json:"items"`
		Total int64      `json:"total"`
	}

	resp := ts.get(t, "/api/posts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all pageBody
	decode(t, resp, &all)
	assert.Equal(t, int64(3), all.Total)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "News", all.Items[0].Title)

	resp = ts.get(t, "/api/posts?type=announcement", "")
	var announcements pageBody
	decode(t, resp, &announcements)
	require.Len(t, announcements.Items, 1)
	assert.Equal(t, news.ID, announcements.Items[0].ID)

	resp = ts.get(t, "/api/posts?subject="+url.QueryEscape("Symbolism"), "")
	var bySubject pageBody
	decode(t, resp, &bySubject)
	require.Len(t, bySubject.Items, 1)
	assert.Equal(t, "One", bySubject.Items[0].Title)

	resp = ts.get(t, "/api/posts/subjects", "")
	var subjects []string
	decode(t, resp, &subjects)
	assert.Equal(t, models.Subjects, subjects)

	resp = ts.get(t, "/api/posts/"+itoa(news.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Post     postBody         `json:"post"`
		Comments []models.Comment `json:"comments"`
	}
	decode(t, resp, &detail)
	assert.Equal(t, "News", detail.Post.Title)
	assert.NotNil(t, detail.Comments)

	resp = ts.get(t, "/api/posts/424242", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.get(t, "/api/posts/nope", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateAndDeletePost(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	mallory := ts.createUser(t, "mallory", false)
	aliceToken := ts.tokenFor(t, alice)
	post := ts.createPost(t, aliceToken, map[string]string{"title": "Draft", "content": "text"})
	path := "/api/posts/" + itoa(post.ID)

	resp := ts.sendForm(t, http.MethodPut, path, map[string]string{"title": "Stolen"}, nil, ts.tokenFor(t, mallory))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.sendForm(t, http.MethodPut, path, map[string]string{"title": "Final"}, tinyPNG(t, 6, 6), aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated postBody
	decode(t, resp, &updated)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, "text", updated.Content)
	require.NotNil(t, updated.ImageRef)

	resp = ts.sendForm(t, http.MethodPut, path, map[string]string{"remove_image": "true"}, nil, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &updated)
	assert.Nil(t, updated.ImageRef)

	resp = ts.sendJSON(t, http.MethodPost, path+"/comments", map[string]string{"content": "first"}, ts.tokenFor(t, mallory))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, newRequest(http.MethodDelete, path), ts.tokenFor(t, mallory))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, newRequest(http.MethodDelete, path), aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var comments int64
	require.NoError(t, ts.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)

	resp = ts.get(t, path, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCommentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice", false)
	bob := ts.createUser(t, "bob", false)
	admin := ts.createUser(t, "root", true)
	post := ts.createPost(t, ts.tokenFor(t, alice), map[string]string{"title": "Q", "content": "?"})

	resp := ts.sendJSON(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/comments", map[string]string{"content": "answer"}, ts.tokenFor(t, bob))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var comment models.Comment
	decode(t, resp, &comment)
	path := "/api/comments/" + itoa(comment.ID)

	resp = ts.sendJSON(t, http.MethodPost, "/api/posts/999/comments", map[string]string{"content": "lost"}, ts.tokenFor(t, bob))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.sendJSON(t, http.MethodPut, path, map[string]string{"content": "edited"}, ts.tokenFor(t, alice))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.sendJSON(t, http.MethodPut, path, map[string]string{"content": "edited"}, ts.tokenFor(t, bob))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &comment)
	assert.Equal(t, "edited", comment.Content)

	resp = ts.do(t, newRequest(http.MethodDelete, path), ts.tokenFor(t, admin))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, newRequest(http.MethodDelete, path), ts.tokenFor(t, bob))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
