package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/product/domain"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	webhookdomain "github.com/smallbiznis/catalogd/internal/webhook/domain"
	"github.com/smallbiznis/catalogd/pkg/db"
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
		log:   p.Log.Named("product.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
		queue: p.Queue,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListRequest{
		SKU:      strings.TrimSpace(req.SKU),
		Name:     strings.TrimSpace(req.Name),
		Active:   req.Active,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 250 {
		filter.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := &domain.ListResponse{
		Products:    make([]domain.Response, 0, len(items)),
		TotalCount:  total,
		TotalPages:  int(math.Ceil(float64(total) / float64(filter.PageSize))),
		CurrentPage: filter.Page,
	}
	for _, item := range items {
		resp.Products = append(resp.Products, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	sku := normalizeSKU(req.SKU)
	if sku == "" {
		return nil, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:          s.genID.Generate().Int64(),
		SKU:         sku,
		Name:        name,
		Description: strings.TrimSpace(ptrToString(req.Description)),
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSKU, sku)
		}
		return nil, err
	}

	s.publishEvent(ctx, webhookdomain.EventProductCreated, snowflake.ID(p.ID).String())

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.SKU != nil {
		sku := normalizeSKU(*req.SKU)
		if sku == "" {
			return nil, domain.ErrInvalidSKU
		}
		item.SKU = sku
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSKU, item.SKU)
		}
		return nil, err
	}

	s.publishEvent(ctx, webhookdomain.EventProductUpdated, snowflake.ID(item.ID).String())

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	item, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, s.db, item.ID); err != nil {
		return err
	}

	s.publishEvent(ctx, webhookdomain.EventProductDeleted, snowflake.ID(item.ID).String())
	return nil
}

func (s *Service) Upsert(ctx context.Context, tx *gorm.DB, req domain.UpsertRequest) (*domain.Product, bool, error) {
	sku := normalizeSKU(req.SKU)
	if sku == "" {
		return nil, false, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)

	existing, err := s.repo.FindBySKU(ctx, tx, sku)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		existing.SKU = sku
		existing.Name = name
		existing.Description = description
		existing.Active = true
		existing.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:          s.genID.Generate().Int64(),
		SKU:         sku,
		Name:        name,
		Description: description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, tx, p); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Lost a race against a concurrent upsert for the same sku.
			return nil, false, fmt.Errorf("%w: %s", domain.ErrDuplicateSKU, sku)
		}
		return nil, false, err
	}
	return p, true, nil
}

func (s *Service) BulkDelete(ctx context.Context) (int64, error) {
	count, err := s.repo.DeleteAll(ctx, s.db)
	if err != nil {
		return 0, err
	}

	s.publishEvent(ctx, webhookdomain.EventProductDeleted, "all")

	s.log.Info("bulk delete finished", zap.Int64("deleted_count", count))
	return count, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Product, error) {
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

func (s *Service) publishEvent(ctx context.Context, event, resourceID string) {
	if s.queue == nil {
		return
	}
	_, err := s.queue.Enqueue(ctx, webhookdomain.TaskKindDispatch, webhookdomain.DispatchEvent{
		Event:      event,
		ResourceID: resourceID,
	})
	if err != nil {
		s.log.Warn("enqueue webhook dispatch failed",
			zap.String("event", event),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
	}
}

func (s *Service) toResponse(p *domain.Product) domain.Response {
	return domain.Response{
		ID:          snowflake.ID(p.ID).String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func normalizeSKU(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
