package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KMohnishM/SIH-25/internal/db/models"
)

func TestMarkReadIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)

	created, err := env.notifications.Create(context.Background(), NotificationInput{
		Title:   "System maintenance",
		Message: "Scheduled downtime on Saturday",
		Type:    models.NotifySystem,
		UserID:  user.ID,
	})
	require.NoError(t, err)
	assert.False(t, created.IsRead)

	first, err := env.notifications.MarkRead(context.Background(), user.ID, created.ID)
	require.NoError(t, err)
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	second, err := env.notifications.MarkRead(context.Background(), user.ID, created.ID)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	require.NotNil(t, second.ReadAt)
	assert.Equal(t, first.ReadAt.Unix(), second.ReadAt.Unix())
}

func TestMarkReadScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)
	other := env.createUser(t, "finance.manager", models.RoleFinance, models.DeptFinance)

	created, err := env.notifications.Create(context.Background(), NotificationInput{
		Title:   "For your eyes",
		Message: "owner only",
		Type:    models.NotifySystem,
		UserID:  owner.ID,
	})
	require.NoError(t, err)

	_, err = env.notifications.MarkRead(context.Background(), other.ID, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)

	for i := 0; i < 3; i++ {
		_, err := env.notifications.Create(context.Background(), NotificationInput{
			Title:   "Reminder",
			Message: "pending work",
			Type:    models.NotifyDeadlineReminder,
			UserID:  user.ID,
		})
		require.NoError(t, err)
	}

	updated, err := env.notifications.MarkAllRead(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	page, err := env.notifications.List(context.Background(), user.ID, NotificationFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Zero(t, page.UnreadCount)

	// Second pass finds nothing left to flip.
	updated, err = env.notifications.MarkAllRead(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestListUnreadOnlyFilter(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)

	first, err := env.notifications.Create(context.Background(), NotificationInput{
		Title:   "one",
		Message: "m",
		Type:    models.NotifySystem,
		UserID:  user.ID,
	})
	require.NoError(t, err)
	_, err = env.notifications.Create(context.Background(), NotificationInput{
		Title:   "two",
		Message: "m",
		Type:    models.NotifySystem,
		UserID:  user.ID,
	})
	require.NoError(t, err)

	_, err = env.notifications.MarkRead(context.Background(), user.ID, first.ID)
	require.NoError(t, err)

	page, err := env.notifications.List(context.Background(), user.ID, NotificationFilters{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "two", page.Notifications[0].Title)
}

func TestDeleteNotification(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)

	created, err := env.notifications.Create(context.Background(), NotificationInput{
		Title:   "temp",
		Message: "m",
		Type:    models.NotifySystem,
		UserID:  user.ID,
	})
	require.NoError(t, err)

	require.NoError(t, env.notifications.Delete(context.Background(), user.ID, created.ID))
	assert.ErrorIs(t, env.notifications.Delete(context.Background(), user.ID, created.ID), ErrNotFound)
}

func TestCreateDefaultsPriority(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "maintenance.engineer", models.RoleMaintenance, models.DeptEngineering)

	created, err := env.notifications.Create(context.Background(), NotificationInput{
		Title:   "defaulted",
		Message: "m",
		Type:    models.NotifySystem,
		UserID:  user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotifyPriorityMedium, created.Priority)
}
