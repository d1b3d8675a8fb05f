package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/internal/dto"
	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
)

func TestNotificationService(t *testing.T) {
	repo, db := newMockRepository()
	svc := NewNotificationService(repo, zap.NewNop())
	fx := testFx(repo)
	ctx := context.Background()

	fx.notify(ctx, "d1", model.NotificationAppointment, "预约成功", "a", "appointment", "a1")
	fx.notify(ctx, "d1", model.NotificationAppointment, "预约状态更新", "b", "appointment", "a1")
	fx.notify(ctx, "d2", model.NotificationAppointment, "预约成功", "c", "", "")
	fx.notify(ctx, "", model.NotificationAppointment, "无接收人", "d", "", "")
	require.Len(t, db.notifications, 3)

	count, err := svc.UnreadCount(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	list, total, err := svc.List(ctx, "d1", &dto.NotificationListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "预约状态更新", list[0].Title, "最新在前")
	require.NotNil(t, list[0].RelatedID)
	assert.Equal(t, "a1", *list[0].RelatedID)

	// 不能标记他人的通知
	err = svc.MarkRead(ctx, "d2", list[0].NotificationID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	require.NoError(t, svc.MarkRead(ctx, "d1", list[0].NotificationID))
	unread, total, err := svc.List(ctx, "d1", &dto.NotificationListRequest{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "预约成功", unread[0].Title)

	n, err := svc.MarkAllRead(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = svc.UnreadCount(ctx, "d1")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.UnreadCount(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
