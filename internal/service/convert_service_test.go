package service

import (
	"context"
	"strings"
	"testing"

	"vexillum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) post(t *testing.T, actor models.Actor, title string, withImage bool) *models.Post {
	t.Helper()
	in := CreatePostInput{Title: title, Content: "Body of " + title, Subject: "Symbolism"}
	if withImage {
		in.Image = &UploadImageInput{Filename: "draft.png", Content: tinyPNG(t, 10, 5)}
	}
	p, err := e.posts.CreatePost(context.Background(), actor, in)
	require.NoError(t, err)
	return p
}

func TestConvertService_PostToDesign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin", true)
	author := env.user(t, "author", false)
	commenter := env.user(t, "commenter", false)

	p := env.post(t, author, "Blue Star", true)
	_, err := env.comments.AddComment(ctx, commenter, models.PostParent(p.ID), "first")
	require.NoError(t, err)
	_, err = env.comments.AddComment(ctx, author, models.PostParent(p.ID), "second")
	require.NoError(t, err)

	d, err := env.convert.PostToDesign(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Star", d.Title)
	assert.Equal(t, "Body of Blue Star", d.Description)
	assert.Equal(t, author.UserID, d.UserID)
	assert.Equal(t, *p.ImageRef, d.ImageRef)
	assert.Equal(t, ConversionMarker, d.HashtagString())
	assert.True(t, d.Approved)
	assert.NotEmpty(t, d.PublicID)
	assert.True(t, env.store.has(d.ImageRef))
	assert.WithinDuration(t, p.CreatedAt, d.CreatedAt, 0)

	_, err = env.posts.GetPost(ctx, p.ID)
	assertCode(t, err, models.CodeNotFound)

	comments, err := env.comments.ListComments(ctx, models.DesignParent(d.ID))
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "second", comments[1].Content)
	assert.Contains(t, env.feed.types(), EventContentConverted)
}

func TestConvertService_LongPostStaysEditable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin", true)
	author := env.user(t, "author", false)

	long := strings.Repeat("stripes ", maxDescLen/4)
	p, err := env.posts.CreatePost(ctx, author, CreatePostInput{
		Title:   "Essay",
		Content: long,
		Image:   &UploadImageInput{Filename: "essay.png", Content: tinyPNG(t, 6, 4)},
	})
	require.NoError(t, err)

	d, err := env.convert.PostToDesign(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Greater(t, len(d.Description), maxDescLen)

	title := "Essay, revised"
	updated, err := env.designs.Update(ctx, author, d.PublicID, UpdateDesignInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Essay, revised", updated.Title)
	assert.Equal(t, strings.TrimSpace(long), updated.Description)

	tooLong := strings.Repeat("x", maxDescLen+1)
	_, err = env.designs.Update(ctx, author, d.PublicID, UpdateDesignInput{Description: &tooLong})
	assertValidationError(t, err)
}

func TestConvertService_PostWithoutImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin", true)
	author := env.user(t, "author", false)

	p := env.post(t, author, "Text only", false)
	_, err := env.comments.AddComment(ctx, author, models.PostParent(p.ID), "still here")
	require.NoError(t, err)

	_, err = env.convert.PostToDesign(ctx, admin, p.ID)
	assertCode(t, err, models.CodePreconditionFailed)

	detail, err := env.posts.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Text only", detail.Post.Title)
	require.Len(t, detail.Comments, 1)

	var designs int64
	env.db.Model(&models.Design{}).Count(&designs)
	assert.Zero(t, designs)
}

func TestConvertService_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.user(t, "author", false)

	p := env.post(t, author, "Mine", true)
	d := env.submit(t, author, "Also mine", "#a")

	_, err := env.convert.PostToDesign(ctx, author, p.ID)
	assertForbiddenError(t, err)
	_, err = env.convert.DesignToPost(ctx, author, d.PublicID)
	assertForbiddenError(t, err)
	_, err = env.convert.DesignToPost(ctx, models.Actor{}, d.PublicID)
	assertCode(t, err, models.CodeUnauthorized)

	_, err = env.posts.GetPost(ctx, p.ID)
	require.NoError(t, err)
	_, err = env.designs.Get(ctx, author, d.PublicID)
	require.NoError(t, err)
}

func TestConvertService_DesignToPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin", true)
	author := env.user(t, "author", false)
	rater := env.user(t, "rater", false)

	d := env.submit(t, author, "Maple", "#leaf #red")
	_, err := env.ratings.SubmitRating(ctx, rater, d.PublicID, 8)
	require.NoError(t, err)
	_, err = env.comments.AddDesignComment(ctx, rater, d.PublicID, "nice")
	require.NoError(t, err)

	p, err := env.convert.DesignToPost(ctx, admin, d.PublicID)
	require.NoError(t, err)
	assert.Equal(t, "Maple", p.Title)
	assert.Equal(t, "about Maple\n\n#leaf #red", p.Content)
	assert.Equal(t, models.PostTypeDiscussion, p.PostType)
	assert.Equal(t, models.DefaultSubject, p.Subject)
	assert.Equal(t, author.UserID, p.UserID)
	require.True(t, p.HasImage())
	assert.Equal(t, d.ImageRef, *p.ImageRef)
	assert.True(t, env.store.has(d.ImageRef))

	_, err = env.designs.Get(ctx, admin, d.PublicID)
	assertCode(t, err, models.CodeNotFound)

	var ratings int64
	env.db.Model(&models.Rating{}).Where("design_id = ?", d.ID).Count(&ratings)
	assert.Zero(t, ratings)

	detail, err := env.posts.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "nice", detail.Comments[0].Content)
}

func TestConvertService_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin", true)
	author := env.user(t, "author", false)

	p := env.post(t, author, "Round", true)
	d, err := env.convert.PostToDesign(ctx, admin, p.ID)
	require.NoError(t, err)
	back, err := env.convert.DesignToPost(ctx, admin, d.PublicID)
	require.NoError(t, err)

	assert.Equal(t, p.Title, back.Title)
	assert.Equal(t, p.UserID, back.UserID)
	assert.Equal(t, *p.ImageRef, *back.ImageRef)
	assert.Equal(t, p.Content+"\n\n"+ConversionMarker, back.Content)
}

func TestPostContentFromDesign(t *testing.T) {
	t.Parallel()

	tags := "#a #b"
	tests := []struct {
		name   string
		design models.Design
		want   string
	}{
		{"both", models.Design{Description: "desc", Hashtags: &tags}, "desc\n\n#a #b"},
		{"description only", models.Design{Description: "desc"}, "desc"},
		{"hashtags only", models.Design{Hashtags: &tags}, "#a #b"},
		{"empty", models.Design{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postContentFromDesign(&tt.design))
		})
	}
}
