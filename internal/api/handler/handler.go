package handler

import (
	"context"

	"github.com/sdnyco/ichi/internal/service"
)

// PingService 发送与预览 ping
type PingService interface {
	Dispatch(ctx context.Context, senderID, placeID, checkInID string) service.Result
	Preview(ctx context.Context, senderID, placeID, checkInID string) service.Result
}

// PlaceService 地点概况
type PlaceService interface {
	PlaceContext(ctx context.Context, placeID string) (*service.PlaceContext, error)
}

type Handler struct {
	pings  PingService
	places PlaceService
	ping   func(ctx context.Context) error
}

// NewHandler wires the services; dbPing backs the health check.
func NewHandler(pings PingService, places PlaceService, dbPing func(ctx context.Context) error) *Handler {
	return &Handler{pings: pings, places: places, ping: dbPing}
}
