package service

import (
	"context"
	"strconv"
	"time"

	"github.com/sirsanndy/room-booking-sub001/internal/holiday/repository"
	"github.com/sirsanndy/room-booking-sub001/pkg/cache"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	apperrors "github.com/sirsanndy/room-booking-sub001/pkg/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"
)

type HolidayService interface {
	GetByYear(ctx context.Context, year int) ([]*model.Holiday, error)
}

// HolidayCache is the slice of pkg/cache the holiday reads need. Rule
// evaluation bypasses this entirely and asks the repository.
type HolidayCache interface {
	GetJSON(ctx context.Context, category, id string, target any) bool
	SetJSON(ctx context.Context, category, id string, value any, ttl time.Duration)
}

type holidayService struct {
	repo  repository.HolidayRepository
	cache HolidayCache
	cfg   *config.Config
}

func NewHolidayService(repo repository.HolidayRepository, holidayCache HolidayCache, cfg *config.Config) HolidayService {
	return &holidayService{
		repo:  repo,
		cache: holidayCache,
		cfg:   cfg,
	}
}

func (s *holidayService) GetByYear(ctx context.Context, year int) ([]*model.Holiday, error) {
	cacheID := strconv.Itoa(year)
	var cached []*model.Holiday
	if s.cache.GetJSON(ctx, cache.CategoryHolidays, cacheID, &cached) {
		return cached, nil
	}

	holidays, err := s.repo.FindByYear(ctx, year)
	if err != nil {
		s.cfg.Log.Error("Failed to list holidays", "year", year, "error", err)
		return nil, apperrors.Internal("Failed to retrieve holidays", err)
	}

	s.cache.SetJSON(ctx, cache.CategoryHolidays, cacheID, holidays, s.cfg.CacheHolidaysTTL)
	return holidays, nil
}
