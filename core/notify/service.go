// Package notify 站内通知：落库、推送到本实例的 WebSocket 连接，并通过 redis 广播到其他实例。
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"Tunedrop/logger"
	"Tunedrop/model"
	"Tunedrop/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Channel 跨实例广播通知的 redis 频道
const Channel = "notifications"

// Event 一次状态变化要告诉用户的内容
type Event struct {
	Title     string
	Message   string
	Severity  string
	ReleaseID string
}

// Sink 发通知的能力，调用方不关心投递结果
type Sink interface {
	Notify(ctx context.Context, userID int64, event Event)
}

// Noop 什么都不做
type Noop struct{}

// Notify 丢弃通知
func (Noop) Notify(context.Context, int64, Event) {}

// envelope redis 上传输的消息
type envelope struct {
	Origin       string              `json:"origin"`
	Notification *model.Notification `json:"notification"`
}

// Service 通知服务
type Service struct {
	repo       repository.NotificationRepository
	hub        *Hub
	rdb        *redis.Client
	instanceID string
	wg         sync.WaitGroup
}

// NewService 创建通知服务，hub 和 rdb 都可以为 nil
func NewService(repo repository.NotificationRepository, hub *Hub, rdb *redis.Client) *Service {
	return &Service{
		repo:       repo,
		hub:        hub,
		rdb:        rdb,
		instanceID: uuid.New().String(),
	}
}

// Notify 异步投递，失败只记日志
func (s *Service) Notify(ctx context.Context, userID int64, event Event) {
	severity := event.Severity
	if severity == "" {
		severity = model.SeverityInfo
	}
	n := model.NewNotification(userID, event.Title, event.Message, severity, event.ReleaseID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(context.WithoutCancel(ctx), n)
	}()
}

func (s *Service) deliver(ctx context.Context, n *model.Notification) {
	if err := s.repo.Create(ctx, n); err != nil {
		logger.Error("保存通知失败",
			logger.Int64("user", n.UserID),
			logger.String("releaseId", n.ReleaseID),
			logger.ErrorField(err))
		return
	}

	if s.hub != nil {
		s.hub.Push(n)
	}

	if s.rdb != nil {
		data, err := json.Marshal(envelope{Origin: s.instanceID, Notification: n})
		if err != nil {
			logger.Warn("failed to marshal notification envelope", logger.ErrorField(err))
			return
		}
		if err := s.rdb.Publish(ctx, Channel, data).Err(); err != nil {
			logger.Warn("广播通知失败", logger.String("id", n.ID), logger.ErrorField(err))
		}
	}
}

// Flush 等待所有进行中的投递完成
func (s *Service) Flush() {
	s.wg.Wait()
}

// Listen 订阅 redis 频道，把其他实例发出的通知推给本实例的连接，ctx 结束时返回
func (s *Service) Listen(ctx context.Context) {
	if s.rdb == nil || s.hub == nil {
		return
	}

	sub := s.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn("invalid notification envelope", logger.ErrorField(err))
				continue
			}
			if env.Origin == s.instanceID || env.Notification == nil {
				continue
			}
			s.hub.Push(env.Notification)
		}
	}
}

// List 列出用户的通知
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*model.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkRead 标记已读
func (s *Service) MarkRead(ctx context.Context, userID int64, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}
