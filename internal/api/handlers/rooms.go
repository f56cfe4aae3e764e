package handlers

import (
	"net/http"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// RoomLister выдаёт публичные живые комнаты (C4)
type RoomLister interface {
	LiveRooms() []domain.Room
}

// RoomsHandler обрабатывает список публичных комнат
type RoomsHandler struct {
	rooms RoomLister
	log   *logger.Logger
}

// NewRoomsHandler создаёт новый rooms handler
func NewRoomsHandler(rooms RoomLister, log *logger.Logger) *RoomsHandler {
	return &RoomsHandler{rooms: rooms, log: log}
}

// Live возвращает публичные комнаты в активном состоянии
// GET /rooms/live
func (h *RoomsHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rooms.LiveRooms())
}
