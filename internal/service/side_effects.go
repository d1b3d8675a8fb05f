package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Sudeep845/Raktsewa-sub000/internal/model"
	"github.com/Sudeep845/Raktsewa-sub000/internal/repository"
	"github.com/Sudeep845/Raktsewa-sub000/internal/session"
	"github.com/Sudeep845/Raktsewa-sub000/pkg/metrics"
)

// sideEffects 非关键写入（站内通知、审计日志）。
// 在主事务提交后执行，失败只记录 Warn 日志，不影响主流程结果。
type sideEffects struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// notify 写入站内通知
func (e sideEffects) notify(ctx context.Context, userID, typ, title, content, relatedType, relatedID string) {
	if userID == "" {
		return
	}
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Content: content,
	}
	if relatedType != "" {
		n.RelatedType = strPtr(relatedType)
	}
	if relatedID != "" {
		n.RelatedID = strPtr(relatedID)
	}
	if err := e.repo.Notification.Create(ctx, n); err != nil {
		metrics.SideEffectFailures.WithLabelValues("notification").Inc()
		e.logger.Warn("写入通知失败",
			zap.String("user_id", userID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}

// logActivity 写入审计日志
func (e sideEffects) logActivity(ctx context.Context, entry *model.ActivityLog) {
	if err := e.repo.ActivityLog.Create(ctx, entry); err != nil {
		metrics.SideEffectFailures.WithLabelValues("activity_log").Inc()
		e.logger.Warn("写入审计日志失败",
			zap.String("entity_type", entry.EntityType),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}

// revokeSessions 下线用户全部会话，失败只记录 Warn
func revokeSessions(ctx context.Context, store session.Store, logger *zap.Logger, userID string) {
	if store == nil {
		return
	}
	if err := store.DeleteByUser(ctx, userID); err != nil {
		metrics.SideEffectFailures.WithLabelValues("session").Inc()
		logger.Warn("下线用户会话失败", zap.String("user_id", userID), zap.Error(err))
	}
}
