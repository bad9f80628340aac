package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMohnishM/SIH-25/internal/db/models"
)

func TestCommentThreading(t *testing.T) {
	env := newTestEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)
	executive := env.createUser(t, "executive.user", models.RoleExecutive, models.DeptManagement)
	doc := env.uploadDocument(t, engineer, "engineering")

	top, err := env.comments.Create(context.Background(), executive, doc.ID, CommentInput{Content: "please revise the cost table"})
	require.NoError(t, err)
	require.NotNil(t, top.Author)
	assert.Equal(t, executive.ID, top.Author.ID)

	reply, err := env.comments.Create(context.Background(), engineer, doc.ID, CommentInput{
		Content:  "updated, see v2",
		ParentID: &top.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)

	// A reply cannot itself take replies.
	_, err = env.comments.Create(context.Background(), executive, doc.ID, CommentInput{
		Content:  "thanks",
		ParentID: &reply.ID,
	})
	assert.ErrorIs(t, err, ErrValidation)

	page, err := env.comments.ListForDocument(context.Background(), executive, doc.ID, 1, 20, true)
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	require.Len(t, page.Comments[0].Replies, 1)
	assert.Equal(t, "updated, see v2", page.Comments[0].Replies[0].Content)
}

func TestCommentParentMustBeOnSameDocument(t *testing.T) {
	env := newTestEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)
	docA := env.uploadDocument(t, engineer, "engineering")
	docB := env.uploadDocument(t, engineer, "engineering")

	top, err := env.comments.Create(context.Background(), engineer, docA.ID, CommentInput{Content: "on A"})
	require.NoError(t, err)

	_, err = env.comments.Create(context.Background(), engineer, docB.ID, CommentInput{
		Content:  "crossed wires",
		ParentID: &top.ID,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInternalCommentVisibility(t *testing.T) {
	env := newTestEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)
	executive := env.createUser(t, "executive.user", models.RoleExecutive, models.DeptManagement)
	doc := env.uploadDocument(t, engineer, "engineering")

	_, err := env.comments.Create(context.Background(), executive, doc.ID, CommentInput{
		Content:    "internal: hold until audit clears",
		IsInternal: true,
	})
	require.NoError(t, err)
	_, err = env.comments.Create(context.Background(), engineer, doc.ID, CommentInput{Content: "public note"})
	require.NoError(t, err)

	// Elevated roles see both when asking for internal.
	page, err := env.comments.ListForDocument(context.Background(), executive, doc.ID, 1, 20, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	// A non-elevated actor only ever sees public comments.
	page, err = env.comments.ListForDocument(context.Background(), engineer, doc.ID, 1, 20, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "public note", page.Comments[0].Content)

	// Even an executive can opt out of internal ones.
	page, err = env.comments.ListForDocument(context.Background(), executive, doc.ID, 1, 20, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestCommentUpdateOwnership(t *testing.T) {
	env := newTestEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)
	other := env.createUser(t, "second.engineer", models.RoleMaintenance, models.DeptEngineering)
	doc := env.uploadDocument(t, engineer, "engineering")

	comment, err := env.comments.Create(context.Background(), engineer, doc.ID, CommentInput{Content: "draft note"})
	require.NoError(t, err)

	resolved := true
	updated, err := env.comments.Update(context.Background(), engineer, comment.ID, CommentUpdate{IsResolved: &resolved})
	require.NoError(t, err)
	assert.True(t, updated.IsResolved)

	content := "hijack"
	_, err = env.comments.Update(context.Background(), other, comment.ID, CommentUpdate{Content: &content})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteTopLevelCascadesReplies(t *testing.T) {
	env := newTestEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)
	executive := env.createUser(t, "executive.user", models.RoleExecutive, models.DeptManagement)
	doc := env.uploadDocument(t, engineer, "engineering")

	top, err := env.comments.Create(context.Background(), engineer, doc.ID, CommentInput{Content: "thread root"})
	require.NoError(t, err)
	_, err = env.comments.Create(context.Background(), executive, doc.ID, CommentInput{Content: "reply", ParentID: &top.ID})
	require.NoError(t, err)

	require.NoError(t, env.comments.Delete(context.Background(), engineer, top.ID))

	var remaining int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("document_id = ?", doc.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestCommentNotifiesUploaderOnly(t *testing.T) {
	env := newTestEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)
	executive := env.createUser(t, "executive.user", models.RoleExecutive, models.DeptManagement)
	doc := env.uploadDocument(t, engineer, "engineering")

	// The uploader commenting on their own document stays silent.
	_, err := env.comments.Create(context.Background(), engineer, doc.ID, CommentInput{Content: "self note"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&models.Notification{}).Where("user_id = ?", engineer.ID).Count(&count).Error)
	assert.Zero(t, count)

	// A third party commenting does notify.
	_, err = env.comments.Create(context.Background(), executive, doc.ID, CommentInput{Content: "review note"})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.Notification{}).Where("user_id = ?", engineer.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
