package service

import (
	"context"
	"strings"
	"testing"

	"vexillum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_AddAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", false)
	d := env.submit(t, owner, "Alpha", "")
	p := env.post(t, owner, "Thread", false)

	c, err := env.comments.AddDesignComment(ctx, owner, d.PublicID, "  on the design  ")
	require.NoError(t, err)
	assert.Equal(t, "on the design", c.Content)
	assert.Equal(t, "owner", c.User.Name)
	parent, err := c.Parent()
	require.NoError(t, err)
	assert.Equal(t, models.DesignParent(d.ID), parent)

	_, err = env.comments.AddComment(ctx, owner, models.PostParent(p.ID), "on the post")
	require.NoError(t, err)

	onDesign, err := env.comments.ListComments(ctx, models.DesignParent(d.ID))
	require.NoError(t, err)
	require.Len(t, onDesign, 1)
	onPost, err := env.comments.ListComments(ctx, models.PostParent(p.ID))
	require.NoError(t, err)
	require.Len(t, onPost, 1)
	assert.Equal(t, "on the post", onPost[0].Content)
	assert.Contains(t, env.feed.types(), EventCommentCreated)
}

func TestCommentService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", false)
	d := env.submit(t, owner, "Alpha", "")

	tests := []struct {
		name    string
		actor   models.Actor
		parent  models.CommentParent
		content string
		code    string
	}{
		{"empty", owner, models.DesignParent(d.ID), "   ", models.CodeValidation},
		{"too long", owner, models.DesignParent(d.ID), strings.Repeat("x", maxCommentLen+1), models.CodeValidation},
		{"no parent", owner, models.CommentParent{}, "hello", models.CodeValidation},
		{"missing design", owner, models.DesignParent(9999), "hello", models.CodeNotFound},
		{"missing post", owner, models.PostParent(9999), "hello", models.CodeNotFound},
		{"anonymous", models.Actor{}, models.DesignParent(d.ID), "hello", models.CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.comments.AddComment(ctx, tt.actor, tt.parent, tt.content)
			assertCode(t, err, tt.code)
		})
	}
}

func TestCommentService_UpdateDeleteGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", false)
	other := env.user(t, "other", false)
	admin := env.user(t, "admin", true)
	d := env.submit(t, owner, "Alpha", "")

	c, err := env.comments.AddDesignComment(ctx, owner, d.PublicID, "original")
	require.NoError(t, err)

	_, err = env.comments.UpdateComment(ctx, other, c.ID, "vandalised")
	assertForbiddenError(t, err)

	updated, err := env.comments.UpdateComment(ctx, owner, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	assertForbiddenError(t, env.comments.DeleteComment(ctx, other, c.ID))
	require.NoError(t, env.comments.DeleteComment(ctx, admin, c.ID))
	assertCode(t, env.comments.DeleteComment(ctx, owner, c.ID), models.CodeNotFound)
}
