// Package room реализует комнату матча как единственную горутину-актора,
// владеющую всем изменяемым состоянием за типизированным каналом команд —
// вместо пер-полевых RWMutex у каждой комнаты.
package room

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/strongfeels/bitbattle/internal/domain"
	"github.com/strongfeels/bitbattle/pkg/logger"
)

// Broadcaster рассылает сообщение всем подписчикам комнаты
type Broadcaster interface {
	Broadcast(roomCode string, messageType string, payload interface{})
}

// JoinOutcome результат попытки присоединения, возвращается только вызвавшему join
type JoinOutcome struct {
	Accepted        bool
	RoomFull        bool
	Problem         *domain.Problem
	Roster          []string
	RequiredPlayers int
	GameMode        domain.GameMode
}

// SubmitOutcome результат обработки посылки комнатой
type SubmitOutcome struct {
	WonTransition bool
	Players       []string
	GameMode      domain.GameMode
	Difficulty    domain.Difficulty
	ProblemID     string
}

// SpectateSnapshot снимок состояния комнаты для вновь подключившегося зрителя
type SpectateSnapshot struct {
	RoomCode       string
	Roster         []string
	GameMode       domain.GameMode
	GameStarted    bool
	GameEnded      bool
	Winner         string
	Problem        *domain.Problem
	PlayerCodes    map[string]string
	SpectatorCount int
}

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdCodeChange
	cmdSubmit
	cmdAttachSpectator
	cmdDetachSpectator
	cmdSnapshot
	cmdIdleInfo
)

type command struct {
	kind commandKind
	// параметры; используется только подмножество в зависимости от kind
	username string
	userID   *uuid.UUID
	code     string
	result   *domain.SubmissionResult
	reply    chan interface{}
}

// IdleInfo сведения, нужные табличному reaper'у для принятия решения об удалении
type IdleInfo struct {
	State        domain.RoomState
	RosterLen    int
	CreatedAt    time.Time
	LastActivity time.Time
}

// Room - комната матча: единственная горутина-владелец состояния за командным каналом
type Room struct {
	code        string
	broadcaster Broadcaster
	log         *logger.Logger

	commands chan *command
	done     chan struct{}
	cancel   context.CancelFunc

	// Поля ниже читает и пишет только run() - горутина актора
	requiredPlayers   int
	gameMode          domain.GameMode
	problem           *domain.Problem
	roster            []string
	authenticatedUser map[string]uuid.UUID
	lastCode          map[string]string
	state             domain.RoomState
	winner            string
	spectatorCount    int
	public            bool
	createdAt         time.Time
	lastActivity      time.Time
}

// NewRoom создаёт комнату в состоянии LOBBY и запускает её актор-горутину
func NewRoom(ctx context.Context, code string, requiredPlayers int, gameMode domain.GameMode, problem *domain.Problem, public bool, broadcaster Broadcaster, log *logger.Logger) *Room {
	runCtx, cancel := context.WithCancel(ctx)
	now := time.Now()

	r := &Room{
		code:              code,
		broadcaster:       broadcaster,
		log:               log,
		commands:          make(chan *command, 32),
		done:              make(chan struct{}),
		cancel:            cancel,
		requiredPlayers:   requiredPlayers,
		gameMode:          gameMode,
		problem:           problem,
		roster:            make([]string, 0, requiredPlayers),
		authenticatedUser: make(map[string]uuid.UUID),
		lastCode:          make(map[string]string),
		state:             domain.RoomStateLobby,
		public:            public,
		createdAt:         now,
		lastActivity:      now,
	}

	go r.run(runCtx)
	return r
}

// Code возвращает код комнаты; неизменяем, безопасен для чтения вне актора
func (r *Room) Code() string { return r.code }

func (r *Room) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.commands:
			r.lastActivity = time.Now()
			r.dispatch(cmd)
		}
	}
}

func (r *Room) dispatch(cmd *command) {
	switch cmd.kind {
	case cmdJoin:
		cmd.reply <- r.handleJoin(cmd.username, cmd.userID)
	case cmdLeave:
		r.handleLeave(cmd.username)
		cmd.reply <- struct{}{}
	case cmdCodeChange:
		r.handleCodeChange(cmd.username, cmd.code)
		cmd.reply <- struct{}{}
	case cmdSubmit:
		cmd.reply <- r.handleSubmit(cmd.username, cmd.result)
	case cmdAttachSpectator:
		cmd.reply <- r.handleAttachSpectator()
	case cmdDetachSpectator:
		r.handleDetachSpectator()
		cmd.reply <- struct{}{}
	case cmdSnapshot:
		cmd.reply <- r.snapshotLocked()
	case cmdIdleInfo:
		cmd.reply <- IdleInfo{State: r.state, RosterLen: len(r.roster), CreatedAt: r.createdAt, LastActivity: r.lastActivity}
	}
}

func (r *Room) send(cmd *command) interface{} {
	cmd.reply = make(chan interface{}, 1)
	select {
	case r.commands <- cmd:
	case <-r.done:
		return nil
	}
	select {
	case v := <-cmd.reply:
		return v
	case <-r.done:
		return nil
	}
}

// Join обрабатывает присоединение игрока к комнате
func (r *Room) Join(username string, userID *uuid.UUID) JoinOutcome {
	v := r.send(&command{kind: cmdJoin, username: username, userID: userID})
	if v == nil {
		return JoinOutcome{Accepted: false, RoomFull: true}
	}
	return v.(JoinOutcome)
}

func (r *Room) handleJoin(username string, userID *uuid.UUID) JoinOutcome {
	if len(r.roster) >= r.requiredPlayers || r.state != domain.RoomStateLobby {
		return JoinOutcome{Accepted: false, RoomFull: true}
	}

	r.roster = append(r.roster, username)
	if userID != nil {
		r.authenticatedUser[username] = *userID
	}
	r.lastCode[username] = ""

	r.broadcaster.Broadcast(r.code, "user_joined", map[string]interface{}{"username": username})
	r.broadcaster.Broadcast(r.code, "player_count", map[string]interface{}{
		"current":  len(r.roster),
		"required": r.requiredPlayers,
	})

	if len(r.roster) == r.requiredPlayers {
		r.state = domain.RoomStateActive
		r.broadcaster.Broadcast(r.code, "game_start", map[string]interface{}{
			"roster":   append([]string{}, r.roster...),
			"problem":  r.problem.PublicFields(),
			"game_mode": r.gameMode,
		})
	}

	return JoinOutcome{
		Accepted:        true,
		Problem:         r.problem,
		Roster:          append([]string{}, r.roster...),
		RequiredPlayers: r.requiredPlayers,
		GameMode:        r.gameMode,
	}
}

// Leave удаляет игрока из ростера и карты кода
func (r *Room) Leave(username string) {
	r.send(&command{kind: cmdLeave, username: username})
}

func (r *Room) handleLeave(username string) {
	for i, u := range r.roster {
		if u == username {
			r.roster = append(r.roster[:i], r.roster[i+1:]...)
			break
		}
	}
	delete(r.authenticatedUser, username)
	delete(r.lastCode, username)

	r.broadcaster.Broadcast(r.code, "user_left", map[string]interface{}{"username": username})
}

// CodeChange сохраняет последний снимок кода игрока и рассылает его подписчикам
func (r *Room) CodeChange(username, code string) {
	r.send(&command{kind: cmdCodeChange, username: username, code: code})
}

func (r *Room) handleCodeChange(username, code string) {
	if r.state != domain.RoomStateActive {
		return
	}
	r.lastCode[username] = code
	r.broadcaster.Broadcast(r.code, "code_change", map[string]interface{}{
		"username": username,
		"code":     code,
	})
}

// Submit рассылает submission_result и, если это первая прошедшая посылка в
// активной комнате, переводит её в ENDED, фиксируя победителя.
func (r *Room) Submit(username string, result *domain.SubmissionResult) SubmitOutcome {
	v := r.send(&command{kind: cmdSubmit, username: username, result: result})
	if v == nil {
		return SubmitOutcome{}
	}
	return v.(SubmitOutcome)
}

func (r *Room) handleSubmit(username string, result *domain.SubmissionResult) SubmitOutcome {
	r.broadcaster.Broadcast(r.code, "submission_result", result)

	if !result.Passed || r.state != domain.RoomStateActive {
		return SubmitOutcome{}
	}

	r.state = domain.RoomStateEnded
	r.winner = username

	return SubmitOutcome{
		WonTransition: true,
		Players:       append([]string{}, r.roster...),
		GameMode:      r.gameMode,
		Difficulty:    r.problem.Difficulty,
		ProblemID:     r.problem.ID,
	}
}

// BroadcastGameOver рассылает итоговое сообщение партии; не требует захода в
// актор, так как не читает и не меняет состояние комнаты.
func (r *Room) BroadcastGameOver(payload interface{}) {
	r.broadcaster.Broadcast(r.code, "game_over", payload)
}

// AttachSpectator увеличивает счётчик зрителей и возвращает снимок для инициализации
func (r *Room) AttachSpectator() SpectateSnapshot {
	v := r.send(&command{kind: cmdAttachSpectator})
	if v == nil {
		return SpectateSnapshot{RoomCode: r.code}
	}
	return v.(SpectateSnapshot)
}

func (r *Room) handleAttachSpectator() SpectateSnapshot {
	r.spectatorCount++

	codes := make(map[string]string, len(r.lastCode))
	for u, c := range r.lastCode {
		codes[u] = c
	}

	var problem *domain.Problem
	if r.problem != nil {
		problem = r.problem.PublicFields()
	}

	return SpectateSnapshot{
		RoomCode:       r.code,
		Roster:         append([]string{}, r.roster...),
		GameMode:       r.gameMode,
		GameStarted:    r.state != domain.RoomStateLobby,
		GameEnded:      r.state == domain.RoomStateEnded,
		Winner:         r.winner,
		Problem:        problem,
		PlayerCodes:    codes,
		SpectatorCount: r.spectatorCount,
	}
}

// DetachSpectator уменьшает счётчик зрителей
func (r *Room) DetachSpectator() {
	r.send(&command{kind: cmdDetachSpectator})
}

func (r *Room) handleDetachSpectator() {
	if r.spectatorCount > 0 {
		r.spectatorCount--
	}
}

// Snapshot возвращает публичный снимок комнаты (для GET /rooms/live и профилей)
func (r *Room) Snapshot() domain.Room {
	v := r.send(&command{kind: cmdSnapshot})
	if v == nil {
		return domain.Room{Code: r.code}
	}
	return v.(domain.Room)
}

func (r *Room) snapshotLocked() domain.Room {
	authenticated := make(map[string]uuid.UUID, len(r.authenticatedUser))
	for u, id := range r.authenticatedUser {
		authenticated[u] = id
	}
	codes := make(map[string]string, len(r.lastCode))
	for u, c := range r.lastCode {
		codes[u] = c
	}

	return domain.Room{
		Code:              r.code,
		RequiredPlayers:   r.requiredPlayers,
		GameMode:          r.gameMode,
		Problem:           r.problem,
		Roster:            append([]string{}, r.roster...),
		AuthenticatedUser: authenticated,
		LastCode:          codes,
		State:             r.state,
		Winner:            r.winner,
		SpectatorCount:    r.spectatorCount,
		Public:            r.public,
		CreatedAt:         r.createdAt,
	}
}

// IdleInfo возвращает сведения, используемые reaper'ом таблицы комнат
func (r *Room) IdleInfo() IdleInfo {
	v := r.send(&command{kind: cmdIdleInfo})
	if v == nil {
		return IdleInfo{State: domain.RoomStateEnded}
	}
	return v.(IdleInfo)
}

// Stop завершает горутину-актор комнаты
func (r *Room) Stop() {
	r.cancel()
	<-r.done
}
