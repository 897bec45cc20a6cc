package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sdnyco/ichi/internal/availability"
	"github.com/sdnyco/ichi/internal/repository"
)

// PlaceContext 地点当前概况
type PlaceContext struct {
	PlaceID        string `json:"placeId"`
	PlaceName      string `json:"placeName"`
	ActiveCheckIns int64  `json:"activeCheckIns"`
	AnchoredCount  int    `json:"anchoredCount"`
	AvailableNow   int    `json:"availableNow"`
}

// PresenceService serves the read-only place context.
type PresenceService struct {
	places   repository.PlaceRepository
	checkIns repository.CheckInRepository
	profiles repository.ProfileRepository
	now      func() time.Time
}

func NewPresenceService(places repository.PlaceRepository, checkIns repository.CheckInRepository, profiles repository.ProfileRepository) *PresenceService {
	return &PresenceService{places: places, checkIns: checkIns, profiles: profiles, now: time.Now}
}

// PlaceContext returns repository.ErrNotFound when the place does not exist.
func (s *PresenceService) PlaceContext(ctx context.Context, placeID string) (*PlaceContext, error) {
	now := s.now()
	place, err := s.places.GetByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	active, err := s.checkIns.CountActiveOthers(ctx, placeID, "", now)
	if err != nil {
		return nil, fmt.Errorf("count active check-ins: %w", err)
	}
	profiles, err := s.profiles.ListAnchored(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("list anchored: %w", err)
	}

	available := 0
	for _, p := range profiles {
		// 展示场景：未配置可用时间即视为不可用
		if availability.IsAvailableNow(availability.FromProfile(p), now, availability.DisabledUnavailable) {
			available++
		}
	}
	return &PlaceContext{
		PlaceID:        place.ID,
		PlaceName:      place.Name,
		ActiveCheckIns: active,
		AnchoredCount:  len(profiles),
		AvailableNow:   available,
	}, nil
}
