package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// Table - таблица живых комнат: код -> актор комнаты. Сама таблица не
// исполняет бизнес-логику комнаты, только отвечает за её размещение/удаление,
// защищённое readers-writer локом (комнаты внутри себя уже сериализованы
// собственным актором).
type Table struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	broadcaster Broadcaster
	log         *logger.Logger

	// ctx - контекст жизни процесса; комнаты живут до его отмены, а не до
	// отмены того короткого request-контекста, из которого их создали.
	ctx context.Context

	idleLobbyTTL time.Duration
	endedTTL     time.Duration
}

// NewTable создаёт таблицу комнат. ctx - родительский контекст процесса,
// отмена которого останавливает все комнаты разом при shutdown. idleLobbyTTL
// и endedTTL - время, после которого комната-заглушка (LOBBY без игроков)
// или завершённая комната выметается reaper'ом.
func NewTable(ctx context.Context, broadcaster Broadcaster, log *logger.Logger, idleLobbyTTL, endedTTL time.Duration) *Table {
	if idleLobbyTTL <= 0 {
		idleLobbyTTL = 5 * time.Minute
	}
	if endedTTL <= 0 {
		endedTTL = 5 * time.Minute
	}
	return &Table{
		rooms:        make(map[string]*Room),
		broadcaster:  broadcaster,
		log:          log,
		ctx:          ctx,
		idleLobbyTTL: idleLobbyTTL,
		endedTTL:     endedTTL,
	}
}

// Create регистрирует новую комнату под указанным кодом; ошибка ErrAlreadyExists
// при коллизии кода - вызывающий (матчмейкер) обязан перегенерировать код.
func (t *Table) Create(code string, requiredPlayers int, gameMode domain.GameMode, problem *domain.Problem, public bool) (*Room, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.rooms[code]; exists {
		return nil, errors.ErrAlreadyExists.WithMessage("room code already in use")
	}

	r := NewRoom(t.ctx, code, requiredPlayers, gameMode, problem, public, t.broadcaster, t.log)
	t.rooms[code] = r
	return r, nil
}

// Get возвращает комнату по коду
func (t *Table) Get(code string) (*Room, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.rooms[code]
	return r, ok
}

// Remove останавливает актор комнаты и удаляет её из таблицы
func (t *Table) Remove(code string) {
	t.mu.Lock()
	r, ok := t.rooms[code]
	if ok {
		delete(t.rooms, code)
	}
	t.mu.Unlock()

	if ok {
		r.Stop()
	}
}

// LiveRooms возвращает снимки публичных комнат в состоянии ACTIVE (GET /rooms/live)
func (t *Table) LiveRooms() []domain.Room {
	t.mu.RLock()
	rooms := make([]*Room, 0, len(t.rooms))
	for _, r := range t.rooms {
		rooms = append(rooms, r)
	}
	t.mu.RUnlock()

	live := make([]domain.Room, 0, len(rooms))
	for _, r := range rooms {
		snap := r.Snapshot()
		if snap.Public && snap.State == domain.RoomStateActive {
			live = append(live, snap)
		}
	}
	return live
}

// Count возвращает текущее число комнат в таблице
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

// RunReaper запускает периодическую очистку осиротевших комнат до отмены ctx.
// Комнаты в LOBBY без игроков старше idleLobbyTTL и комнаты в ENDED старше
// endedTTL удаляются из таблицы (актор комнаты останавливается); их
// WebSocket-подписчики в хабе при этом не закрываются.
func (t *Table) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.reapOnce()
		}
	}
}

func (t *Table) reapOnce() {
	now := time.Now()

	t.mu.RLock()
	codes := make([]string, 0, len(t.rooms))
	rooms := make([]*Room, 0, len(t.rooms))
	for code, r := range t.rooms {
		codes = append(codes, code)
		rooms = append(rooms, r)
	}
	t.mu.RUnlock()

	for i, r := range rooms {
		info := r.IdleInfo()

		var stale bool
		switch {
		case info.State == domain.RoomStateLobby && info.RosterLen == 0:
			stale = now.Sub(info.CreatedAt) > t.idleLobbyTTL
		case info.State == domain.RoomStateEnded:
			stale = now.Sub(info.LastActivity) > t.endedTTL
		}

		if stale {
			t.log.Info("reaping idle room", zap.String("room_code", codes[i]))
			t.Remove(codes[i])
		}
	}
}
