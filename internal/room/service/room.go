package service

import (
	"context"
	"errors"
	"time"

	roomerrors "github.com/sirsanndy/room-booking-sub001/internal/room/errors"
	"github.com/sirsanndy/room-booking-sub001/internal/room/repository"
	"github.com/sirsanndy/room-booking-sub001/pkg/cache"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"
)

type RoomService interface {
	GetAll(ctx context.Context) ([]*model.Room, error)
	GetByID(ctx context.Context, id string) (*model.Room, error)
}

// RoomCache is the slice of pkg/cache the room reads need.
type RoomCache interface {
	GetJSON(ctx context.Context, category, id string, target any) bool
	SetJSON(ctx context.Context, category, id string, value any, ttl time.Duration)
}

type roomService struct {
	repo  repository.RoomRepository
	cache RoomCache
	cfg   *config.Config
}

func NewRoomService(repo repository.RoomRepository, roomCache RoomCache, cfg *config.Config) RoomService {
	return &roomService{
		repo:  repo,
		cache: roomCache,
		cfg:   cfg,
	}
}

func (s *roomService) GetAll(ctx context.Context) ([]*model.Room, error) {
	var cached []*model.Room
	if s.cache.GetJSON(ctx, cache.CategoryRooms, "all", &cached) {
		return cached, nil
	}

	rooms, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}

	s.cache.SetJSON(ctx, cache.CategoryRooms, "all", rooms, s.cfg.CacheRoomsTTL)
	return rooms, nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	var cached model.Room
	if s.cache.GetJSON(ctx, cache.CategoryRooms, id, &cached) {
		return &cached, nil
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, roomerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		if errors.Is(err, roomerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid room ID format")
		}
		s.cfg.Log.Error("Failed to retrieve room", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}

	s.cache.SetJSON(ctx, cache.CategoryRooms, id, room, s.cfg.CacheRoomsTTL)
	return room, nil
}
