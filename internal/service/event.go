package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giftflow/giftflow/internal/config"
	"github.com/giftflow/giftflow/internal/domain"
	"github.com/giftflow/giftflow/internal/event"
	"github.com/giftflow/giftflow/internal/repository"
	"github.com/giftflow/giftflow/internal/storage"
	apperrors "github.com/giftflow/giftflow/pkg/errors"
	"github.com/giftflow/giftflow/pkg/slug"
)

// EventService manages gift-collection events.
type EventService struct {
	events   repository.EventRepository
	users    repository.UserRepository
	store    storage.Storage
	producer *event.Producer
	cfg      *config.Config
	logger   *slog.Logger
}

// NewEventService creates a new event service.
func NewEventService(
	events repository.EventRepository,
	users repository.UserRepository,
	store storage.Storage,
	producer *event.Producer,
	cfg *config.Config,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		events:   events,
		users:    users,
		store:    store,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateEventInput holds the parameters for creating an event.
type CreateEventInput struct {
	Name        string
	Description string
	Date        time.Time
	Image       *FileUpload
}

// Create stores a new event owned by the given user. The slug gets a short
// random suffix so identically named events stay addressable.
func (s *EventService) Create(ctx context.Context, ownerID int64, input CreateEventInput) (*domain.Event, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("event name is required")
	}
	if input.Date.IsZero() {
		return nil, apperrors.InvalidInput("event date is required")
	}
	if input.Image != nil && !allowedExtension(input.Image.Filename, imageExtensions) {
		return nil, apperrors.InvalidInput("event image must be a .jpg, .jpeg or .png file")
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("get event owner: %w", err)
	}

	var imageKey string
	if input.Image != nil {
		imageKey = storageKey("events", input.Image.Filename)
		if err := s.store.Upload(ctx, &storage.UploadInput{
			Key:         imageKey,
			ContentType: input.Image.ContentType,
			Size:        input.Image.Size,
			Data:        bytes.NewReader(input.Image.Data),
		}); err != nil {
			return nil, fmt.Errorf("store event image: %w", err)
		}
	}

	now := time.Now().UTC()
	e := &domain.Event{
		OwnerID:     ownerID,
		Name:        input.Name,
		Description: input.Description,
		Date:        input.Date,
		ImageKey:    imageKey,
		Slug:        slug.Generate(input.Name) + "-" + uuid.New().String()[:8],
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.events.Create(ctx, e); err != nil {
		if imageKey != "" {
			if derr := s.store.Delete(ctx, imageKey); derr != nil {
				s.logger.WarnContext(ctx, "failed to delete orphaned event image",
					slog.String("key", imageKey),
					slog.String("error", derr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := s.producer.PublishEventCreated(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event.created event",
			slog.Int64("event_id", e.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "event created",
		slog.Int64("event_id", e.ID),
		slog.Int64("owner_id", ownerID),
		slog.String("slug", e.Slug),
	)

	s.signImageURL(ctx, e)
	return e, nil
}

// Get retrieves an event with its owner and a signed image URL.
func (s *EventService) Get(ctx context.Context, id int64) (*domain.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.signImageURL(ctx, e)
	return e, nil
}

// List returns a page of events, newest first, with the total count.
func (s *EventService) List(ctx context.Context, limit, offset int) ([]domain.Event, int, error) {
	events, total, err := s.events.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	for i := range events {
		s.signImageURL(ctx, &events[i])
	}
	return events, total, nil
}

// ListMine returns all events owned by the given user.
func (s *EventService) ListMine(ctx context.Context, ownerID int64) ([]domain.Event, error) {
	events, err := s.events.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list own events: %w", err)
	}
	for i := range events {
		s.signImageURL(ctx, &events[i])
	}
	return events, nil
}

// UpdateEventInput holds the fields an owner may change. Ownership and the
// collected amount are never client-writable.
type UpdateEventInput struct {
	Name        *string
	Description *string
	Date        *time.Time
	Image       *FileUpload
}

// Update merges changes into an event the caller owns.
func (s *EventService) Update(ctx context.Context, ownerID, eventID int64, input UpdateEventInput) (*domain.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.OwnerID != ownerID {
		return nil, apperrors.NotFound("event", fmt.Sprintf("%d", eventID))
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.InvalidInput("event name must not be empty")
		}
		e.Name = *input.Name
		e.Slug = slug.Generate(*input.Name) + "-" + uuid.New().String()[:8]
	}
	if input.Description != nil {
		e.Description = *input.Description
	}
	if input.Date != nil {
		e.Date = *input.Date
	}

	oldImage := ""
	if input.Image != nil {
		if !allowedExtension(input.Image.Filename, imageExtensions) {
			return nil, apperrors.InvalidInput("event image must be a .jpg, .jpeg or .png file")
		}
		key := storageKey("events", input.Image.Filename)
		if err := s.store.Upload(ctx, &storage.UploadInput{
			Key:         key,
			ContentType: input.Image.ContentType,
			Size:        input.Image.Size,
			Data:        bytes.NewReader(input.Image.Data),
		}); err != nil {
			return nil, fmt.Errorf("store event image: %w", err)
		}
		oldImage = e.ImageKey
		e.ImageKey = key
	}

	e.UpdatedAt = time.Now().UTC()
	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}

	if oldImage != "" {
		if err := s.store.Delete(ctx, oldImage); err != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced event image",
				slog.String("key", oldImage),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "event updated",
		slog.Int64("event_id", e.ID),
		slog.Int64("owner_id", ownerID),
	)

	s.signImageURL(ctx, e)
	return e, nil
}

// Delete removes an event the caller owns, along with its stored image.
func (s *EventService) Delete(ctx context.Context, ownerID, eventID int64) error {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.OwnerID != ownerID {
		return apperrors.NotFound("event", fmt.Sprintf("%d", eventID))
	}

	if err := s.events.Delete(ctx, eventID, ownerID); err != nil {
		return err
	}

	if e.ImageKey != "" {
		if err := s.store.Delete(ctx, e.ImageKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete event image",
				slog.String("key", e.ImageKey),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "event deleted",
		slog.Int64("event_id", eventID),
		slog.Int64("owner_id", ownerID),
	)
	return nil
}

// signImageURL populates ImageURL with a short-lived signed link. A signing
// failure leaves the URL empty rather than failing the read.
func (s *EventService) signImageURL(ctx context.Context, e *domain.Event) {
	if e.ImageKey == "" {
		return
	}
	url, err := s.store.SignedURL(ctx, e.ImageKey, time.Duration(s.cfg.SignedURLTTLMin)*time.Minute)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to sign event image URL",
			slog.String("key", e.ImageKey),
			slog.String("error", err.Error()),
		)
		return
	}
	e.ImageURL = url
}
