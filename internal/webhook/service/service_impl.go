package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	"github.com/smallbiznis/catalogd/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
	Queue *taskqueue.Queue `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
	queue *taskqueue.Queue
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("webhook.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
		queue: p.Queue,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	target, err := validateURL(req.URL)
	if err != nil {
		return nil, err
	}

	eventType := strings.TrimSpace(req.EventType)
	if !domain.ValidEvent(eventType) {
		return nil, domain.ErrInvalidEvent
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	w := &domain.Webhook{
		ID:        s.genID.Generate().Int64(),
		URL:       target,
		EventType: eventType,
		IsActive:  active,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, s.db, w); err != nil {
		return nil, err
	}

	resp := toResponse(w)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.URL != nil {
		target, err := validateURL(*req.URL)
		if err != nil {
			return nil, err
		}
		item.URL = target
	}
	if req.EventType != nil {
		eventType := strings.TrimSpace(*req.EventType)
		if !domain.ValidEvent(eventType) {
			return nil, domain.ErrInvalidEvent
		}
		item.EventType = eventType
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, item.ID)
}

func (s *Service) Test(ctx context.Context, id string) error {
	item, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if s.queue == nil {
		return nil
	}

	_, err = s.queue.Enqueue(ctx, domain.TaskKindDispatch, domain.DispatchEvent{
		Event:      item.EventType,
		ResourceID: "test",
	})
	if err != nil {
		s.log.Warn("enqueue webhook test failed",
			zap.String("webhook_id", id),
			zap.Error(err),
		)
	}
	return err
}

func (s *Service) find(ctx context.Context, id string) (*domain.Webhook, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func validateURL(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	parsed, err := url.ParseRequestURI(target)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", domain.ErrInvalidURL
	}
	return target, nil
}

func toResponse(w *domain.Webhook) domain.Response {
	return domain.Response{
		ID:        snowflake.ID(w.ID).String(),
		URL:       w.URL,
		EventType: w.EventType,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt,
	}
}
