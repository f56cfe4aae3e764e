// Package matchmaking реализует очередь подбора матчей: приём игроков,
// периодический проход подбора пар и передачу готового матча Room Manager'у.
package matchmaking

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/internal/domain/room"
	"github.com/strongfeels/bitbattle/pkg/errors"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// baseRatingThreshold - ширина рейтингового окна подбора при нулевом ожидании
const baseRatingThreshold = 200

// maxWaitSeconds - время ожидания, за которое окно расширяется на полную величину
const maxWaitSeconds = 60.0

// maxRatingExpansion - на сколько очков расширяется окно к концу maxWaitSeconds
const maxRatingExpansion = 500

// recentMatchesCap - сколько последних матчей держим для find_match_for
const recentMatchesCap = 100

// requiredPlayersPerMatch - матчмейкер всегда формирует пары; комнаты на 3-4
// игрока собираются вручную через приглашения, а не через очередь
const requiredPlayersPerMatch = 2

// RoomCreator создаёт комнату под уже согласованный код; ErrAlreadyExists
// сигнализирует коллизию кода, вызывающий обязан перегенерировать его.
type RoomCreator interface {
	Create(code string, requiredPlayers int, gameMode domain.GameMode, problem *domain.Problem, public bool) (*room.Room, error)
}

// ProblemSource выбирает задачу нужной сложности для только что собранного матча.
type ProblemSource interface {
	RandomByDifficulty(ctx context.Context, difficulty domain.Difficulty, participantIDs []uuid.UUID) (*domain.Problem, error)
}

// Queue - очередь подбора матчей, хранится только в памяти процесса.
type Queue struct {
	mu      sync.RWMutex
	players map[string]domain.QueuedPlayer

	recentMu      sync.RWMutex
	recentMatches []domain.Match

	rooms    RoomCreator
	problems ProblemSource
	log      *logger.Logger
}

// NewQueue создаёт пустую очередь матчмейкинга
func NewQueue(rooms RoomCreator, problems ProblemSource, log *logger.Logger) *Queue {
	return &Queue{
		players:  make(map[string]domain.QueuedPlayer),
		rooms:    rooms,
		problems: problems,
		log:      log,
	}
}

// Join добавляет игрока в очередь, заменяя существующую запись с тем же connection_id
func (q *Queue) Join(player domain.QueuedPlayer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.players[player.ConnectionID] = player
}

// Leave убирает игрока из очереди
func (q *Queue) Leave(connectionID string) (domain.QueuedPlayer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.players[connectionID]
	if ok {
		delete(q.players, connectionID)
	}
	return p, ok
}

// Position возвращает позицию игрока в очереди, отсортированной по queued_at (0 - первый)
func (q *Queue) Position(connectionID string) (int, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ordered := q.sortedLocked()
	for i, p := range ordered {
		if p.ConnectionID == connectionID {
			return i, true
		}
	}
	return 0, false
}

// Size возвращает общее число игроков в очереди
func (q *Queue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.players)
}

// SizeFor возвращает число игроков в очереди, совместимых по сложности и режиму
func (q *Queue) SizeFor(difficulty domain.Difficulty, gameMode domain.GameMode) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	count := 0
	for _, p := range q.players {
		if p.GameMode == gameMode && difficultyCompatible(p.PreferredDifficulty, difficulty) {
			count++
		}
	}
	return count
}

// FindMatchFor ищет недавно собранный матч, в котором участвует данный connection_id
func (q *Queue) FindMatchFor(connectionID string) (*domain.Match, bool) {
	q.recentMu.RLock()
	defer q.recentMu.RUnlock()

	for i := len(q.recentMatches) - 1; i >= 0; i-- {
		m := q.recentMatches[i]
		for _, username := range m.Players {
			if username == connectionID {
				return &m, true
			}
		}
	}
	return nil, false
}

func (q *Queue) sortedLocked() []domain.QueuedPlayer {
	ordered := make([]domain.QueuedPlayer, 0, len(q.players))
	for _, p := range q.players {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].QueuedAt.Before(ordered[j].QueuedAt)
	})
	return ordered
}

// ProcessTick выполняет один проход подбора пар: снимок очереди, сортировка по
// времени ожидания, попарное сопоставление по совместимости, создание комнаты
// под каждый собранный матч.
func (q *Queue) ProcessTick(ctx context.Context) []domain.Match {
	q.mu.Lock()
	ordered := q.sortedLocked()
	now := time.Now()

	matched := make(map[string]bool, len(ordered))
	var matches []domain.Match

	for i := range ordered {
		p1 := ordered[i]
		if matched[p1.ConnectionID] {
			continue
		}

		waitSeconds := now.Sub(p1.QueuedAt).Seconds()
		window := ratingWindow(waitSeconds)

		for j := i + 1; j < len(ordered); j++ {
			p2 := ordered[j]
			if matched[p2.ConnectionID] {
				continue
			}
			if !compatible(p1, p2, window) {
				continue
			}

			match := q.createMatch(ctx, p1, p2, now)
			matched[p1.ConnectionID] = true
			matched[p2.ConnectionID] = true
			matches = append(matches, match)
			break
		}
	}

	for id := range matched {
		delete(q.players, id)
	}
	q.mu.Unlock()

	if len(matches) > 0 {
		q.recordMatches(matches)
	}

	return matches
}

// createMatch резолвит сложность, выделяет код комнаты и просит Room Manager
// создать комнату под собранную пару. Ошибки создания комнаты не прерывают
// подбор: матч всё равно считается состоявшимся, комната досоздаётся лениво
// при первом join (Table.Get промахнётся - тогда обработчик создаст её).
func (q *Queue) createMatch(ctx context.Context, p1, p2 domain.QueuedPlayer, now time.Time) domain.Match {
	difficulty := resolveDifficulty(p1.PreferredDifficulty, p2.PreferredDifficulty)
	code := q.allocateRoomCode(ctx, difficulty, p1.GameMode, []domain.QueuedPlayer{p1, p2})

	return domain.Match{
		MatchID:    uuid.New(),
		Players:    [2]string{p1.ConnectionID, p2.ConnectionID},
		Difficulty: difficulty,
		GameMode:   p1.GameMode,
		RoomCode:   code,
		CreatedAt:  now,
	}
}

// allocateRoomCode генерирует код вида WORD-WORD-NNNN, перегенерируя его при
// коллизии с уже живой комнатой (ErrAlreadyExists от Table.Create), и просит
// Room Manager заранее создать комнату под этот код.
func (q *Queue) allocateRoomCode(ctx context.Context, difficulty domain.Difficulty, gameMode domain.GameMode, players []domain.QueuedPlayer) string {
	participantIDs := make([]uuid.UUID, 0, len(players))
	for _, p := range players {
		if p.UserID != nil {
			participantIDs = append(participantIDs, *p.UserID)
		}
	}

	problem, err := q.problems.RandomByDifficulty(ctx, difficulty, participantIDs)
	if err != nil {
		q.log.Error("failed to select problem for matched pair", zap.Error(err))
	}

	const maxAttempts = 20
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := generateRoomCode()
		_, err := q.rooms.Create(code, requiredPlayersPerMatch, gameMode, problem, true)
		if err == nil {
			return code
		}
		if appErr := errors.GetAppError(err); appErr == nil || appErr.Code != errors.ErrAlreadyExists.Code {
			q.log.Error("failed to pre-create matched room", zap.Error(err))
			return code
		}
	}

	return generateRoomCode()
}

func (q *Queue) recordMatches(matches []domain.Match) {
	q.recentMu.Lock()
	defer q.recentMu.Unlock()

	q.recentMatches = append(q.recentMatches, matches...)
	if len(q.recentMatches) > recentMatchesCap {
		q.recentMatches = q.recentMatches[len(q.recentMatches)-recentMatchesCap:]
	}
}

// ratingWindow рассчитывает эффективное окно рейтинга: расширяется с 200 до
// 700 очков линейно за первые 60 секунд ожидания, затем не растёт.
func ratingWindow(waitSeconds float64) int {
	factor := math.Min(waitSeconds/maxWaitSeconds, 1.0)
	return baseRatingThreshold + int(factor*maxRatingExpansion)
}

// difficultyCompatible реализует правило QueueDifficulty::matches оригинала: Any
// совместим с чем угодно, иначе требуется точное совпадение.
func difficultyCompatible(a, b domain.Difficulty) bool {
	if a == domain.DifficultyAny || b == domain.DifficultyAny {
		return true
	}
	return a == b
}

func compatible(p1, p2 domain.QueuedPlayer, ratingWindow int) bool {
	if p1.GameMode != p2.GameMode {
		return false
	}
	if !difficultyCompatible(p1.PreferredDifficulty, p2.PreferredDifficulty) {
		return false
	}
	if p1.GameMode == domain.GameModeRanked {
		diff := p1.Rating - p2.Rating
		if diff < 0 {
			diff = -diff
		}
		if diff > ratingWindow {
			return false
		}
	}
	return true
}

var concreteDifficulties = []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard}

// resolveDifficulty выбирает итоговую сложность матча: если оба игрока указали
// Any - равновероятный случайный выбор, иначе берётся конкретное предпочтение.
func resolveDifficulty(d1, d2 domain.Difficulty) domain.Difficulty {
	if d1 == domain.DifficultyAny && d2 == domain.DifficultyAny {
		return concreteDifficulties[rand.Intn(len(concreteDifficulties))]
	}
	if d1 == domain.DifficultyAny {
		return d2
	}
	if d2 == domain.DifficultyAny {
		return d1
	}
	return d1
}

var roomCodeAdjectives = []string{"SWIFT", "SHARP", "QUICK", "SMART", "BRAVE", "FAST", "COOL", "EPIC"}
var roomCodeNouns = []string{"CODER", "HACKER", "NINJA", "MASTER", "WIZARD", "GENIUS", "HERO", "CHAMP"}

// generateRoomCode строит код вида WORD-WORD-NNNN из фиксированных списков слов
func generateRoomCode() string {
	adj := roomCodeAdjectives[rand.Intn(len(roomCodeAdjectives))]
	noun := roomCodeNouns[rand.Intn(len(roomCodeNouns))]
	num := 1000 + rand.Intn(9000)
	return fmt.Sprintf("%s-%s-%d", adj, noun, num)
}
