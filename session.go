// Quizbox live quiz session
//
// One host presents, any number of players join with a 4-digit PIN.
// The whole session is a single state machine:
//
//	idle → lobby → question ↔ reveal → leaderboard
//
// Features:
// - WebSockets per client, tagged host or player at connect time
// - One session per process; host "reset" restarts it with a fresh PIN
// - Questions snapshotted from the source at reset, never mid-session
// - One-second countdown per question, auto-reveal when everyone answers
// - First answer wins; duplicates and out-of-range answers are ignored
// - Correct answers score 1000 plus a time bonus captured at answer time
// - Ties on the leaderboard keep join order
// - Validation failures are messaged only to the offending client
//
// All session state is owned by the hub goroutine: connection events,
// client messages, and countdown ticks are funneled through channels and
// handled one at a time, so no handler ever races another.

package main

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

type phase int

const (
	phaseIdle phase = iota
	phaseLobby
	phaseQuestion
	phaseReveal
	phaseLeaderboard
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseLobby:
		return "lobby"
	case phaseQuestion:
		return "question"
	case phaseReveal:
		return "reveal"
	case phaseLeaderboard:
		return "leaderboard"
	}
	return "unknown"
}

const maxNameLength = 20

// Player holds the data we store server-side. The client reference goes
// stale when a player disconnects mid-game; the record and score survive
// until the next reset.
type Player struct {
	ID              string
	Name            string
	Score           int
	Answer          *int
	AnswerRemaining *int
	LastPoints      int
	client          *Client
}

// Session is the quiz state proper: one per process, rebuilt on reset.
type Session struct {
	phase     phase
	pin       string
	questions []Question
	index     int
	remaining int
	answered  int
	players   []*Player
}

func newSession(questions []Question) *Session {
	return &Session{
		phase:     phaseLobby,
		pin:       newPin(),
		questions: questions,
		index:     -1,
	}
}

// newPin draws a 4-digit join code from [1000, 9999].
func newPin() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	n := binary.BigEndian.Uint32(buf[:])
	return strconv.Itoa(1000 + int(n%9000))
}

type clientEnvelope struct {
	client *Client
	env    Envelope
}

type countdownTick struct {
	gen int
}

// Hub owns the session, the host connection, and all player connections.
// Every mutation happens inside run(), one event at a time.
type Hub struct {
	cfg    *Config
	clock  clockwork.Clock
	source *QuestionSource

	register chan *Client
	unreg    chan *Client
	messages chan clientEnvelope
	ticks    chan countdownTick

	host    *Client
	clients map[*Client]bool

	session *Session

	nextPlayerID  int
	countdownGen  int
	countdownStop chan struct{}
}

func newHub(cfg *Config, source *QuestionSource, clock clockwork.Clock) *Hub {
	return &Hub{
		cfg:      cfg,
		clock:    clock,
		source:   source,
		register: make(chan *Client),
		unreg:    make(chan *Client),
		messages: make(chan clientEnvelope),
		ticks:    make(chan countdownTick),
		clients:  make(map[*Client]bool),
		session:  &Session{phase: phaseIdle, index: -1},
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unreg:
			h.handleUnregister(c)
		case m := <-h.messages:
			h.handleMessage(m.client, m.env)
		case t := <-h.ticks:
			h.handleTick(t)
		}
	}
}

// ---- Connection registry ----

func (h *Hub) handleRegister(c *Client) {
	switch c.role {
	case roleHost:
		if h.host != nil && h.host != c {
			old := h.host
			h.host = nil
			h.drop(old)
			h.broadcastPlayers("host-disconnected", struct{}{})
		}

		h.clients[c] = true
		h.host = c

		if h.session.phase == phaseIdle {
			h.resetSession()
		} else if h.session.phase == phaseLobby {
			h.send(c, "lobby", LobbyData{Pin: h.session.pin, Players: h.playerNames()})
		}

		logf(h.cfg, "QUIZ: Host connected (session %s, phase %s)", h.session.pin, h.session.phase)

	case rolePlayer:
		h.clients[c] = true
	}
}

func (h *Hub) handleUnregister(c *Client) {
	if !h.clients[c] {
		return
	}
	h.drop(c)

	if c.role == roleHost {
		h.broadcastPlayers("host-disconnected", struct{}{})
		logf(h.cfg, "QUIZ: Host disconnected (session %s)", h.session.pin)
		return
	}

	p := h.playerFor(c)
	if p == nil {
		return
	}

	// Players only leave the session while it sits in the lobby.
	// Mid-game disconnects keep their record, score, and standing.
	if h.session.phase != phaseLobby {
		return
	}

	dst := h.session.players[:0]
	for _, joined := range h.session.players {
		if joined == p {
			continue
		}
		dst = append(dst, joined)
	}
	h.session.players = dst

	h.sendToHost("player-left", PlayerEventData{
		Name:    p.Name,
		Count:   len(h.session.players),
		Players: h.playerNames(),
	})

	logf(h.cfg, "QUIZ: Player %q left %s", p.Name, h.session.pin)
}

// drop removes a connection and closes its outbound channel. Any player
// record pointing at it keeps its score but loses the live reference.
func (h *Hub) drop(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)

	if h.host == c {
		h.host = nil
	}
	if p := h.playerFor(c); p != nil {
		p.client = nil
	}
}

func (h *Hub) playerFor(c *Client) *Player {
	if c.playerID == "" {
		return nil
	}
	for _, p := range h.session.players {
		if p.ID == c.playerID {
			return p
		}
	}
	return nil
}

func (h *Hub) playerNames() []string {
	names := make([]string, 0, len(h.session.players))
	for _, p := range h.session.players {
		names = append(names, p.Name)
	}
	return names
}

// ---- Broadcaster ----

// send delivers one message to one connection, silently skipping
// connections that are gone or whose write queue is full.
func (h *Hub) send(c *Client, msgType string, data any) {
	if c == nil || !h.clients[c] {
		return
	}
	select {
	case c.send <- envelope(msgType, data):
	default:
		h.drop(c)
	}
}

func (h *Hub) sendToHost(msgType string, data any) {
	h.send(h.host, msgType, data)
}

func (h *Hub) broadcast(msgType string, data any) {
	msg := envelope(msgType, data)
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.drop(c)
		}
	}
}

func (h *Hub) broadcastPlayers(msgType string, data any) {
	msg := envelope(msgType, data)
	for c := range h.clients {
		if c.role != rolePlayer {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.drop(c)
		}
	}
}

// ---- Message dispatch ----

func (h *Hub) handleMessage(c *Client, env Envelope) {
	switch env.Type {
	case "join":
		if c.role == rolePlayer {
			h.handleJoin(c, env)
		}
	case "answer":
		if c.role == rolePlayer {
			h.handleAnswer(c, env)
		}
	case "start":
		if c == h.host {
			h.handleStart(c)
		}
	case "next":
		if c == h.host {
			h.handleNext(c)
		}
	case "reset":
		if c == h.host {
			h.handleReset(c)
		}
	default:
		// ignore unknown types
	}
}

func (h *Hub) handleJoin(c *Client, env Envelope) {
	if h.session.phase != phaseLobby {
		h.send(c, "error", ErrorData{Message: "The game has already started."})
		return
	}

	if h.playerFor(c) != nil {
		return
	}

	var join JoinData
	if err := unmarshalData(env, &join); err != nil {
		return
	}

	if join.Pin != h.session.pin {
		h.send(c, "error", ErrorData{Message: "Invalid game PIN."})
		return
	}

	name := strings.TrimSpace(join.Name)
	if name == "" {
		h.send(c, "error", ErrorData{Message: "Please enter a name."})
		return
	}
	if len(name) > maxNameLength {
		h.send(c, "error", ErrorData{Message: "That name is too long."})
		return
	}

	for _, p := range h.session.players {
		if strings.EqualFold(p.Name, name) {
			h.send(c, "error", ErrorData{Message: "That name is already taken. Please choose a different name."})
			return
		}
	}

	h.nextPlayerID++
	p := &Player{
		ID:     "p" + strconv.Itoa(h.nextPlayerID),
		Name:   name,
		client: c,
	}
	c.playerID = p.ID
	h.session.players = append(h.session.players, p)

	h.send(c, "joined", JoinedData{ID: p.ID, Name: p.Name})
	h.sendToHost("player-joined", PlayerEventData{
		Name:    p.Name,
		Count:   len(h.session.players),
		Players: h.playerNames(),
	})

	logf(h.cfg, "QUIZ: Player %q joined %s", p.Name, h.session.pin)
}

func (h *Hub) handleStart(c *Client) {
	if h.session.phase != phaseLobby {
		return
	}
	if len(h.session.players) == 0 {
		h.send(c, "error", ErrorData{Message: "At least one player must join before starting."})
		return
	}

	logf(h.cfg, "QUIZ: Session %s started with %d players", h.session.pin, len(h.session.players))
	h.startQuestion()
}

func (h *Hub) handleAnswer(c *Client, env Envelope) {
	s := h.session
	if s.phase != phaseQuestion {
		return
	}

	p := h.playerFor(c)
	if p == nil || p.Answer != nil {
		return
	}

	var answer AnswerData
	if err := unmarshalData(env, &answer); err != nil {
		return
	}

	q := s.questions[s.index]
	if answer.Answer < 1 || answer.Answer > len(q.Options) {
		return
	}

	idx := answer.Answer
	remaining := s.remaining
	p.Answer = &idx
	p.AnswerRemaining = &remaining
	s.answered++

	h.send(c, "answer-received", AnswerData{Answer: idx})
	h.sendToHost("answer-count", AnswerCountData{
		Count: s.answered,
		Total: len(s.players),
	})

	if s.answered >= len(s.players) {
		h.revealAnswer()
	}
}

func (h *Hub) handleNext(c *Client) {
	if h.session.phase != phaseReveal {
		return
	}
	h.startQuestion()
}

func (h *Hub) handleReset(c *Client) {
	logf(h.cfg, "QUIZ: Session %s reset by host", h.session.pin)
	h.resetSession()
}

// ---- State machine ----

// resetSession rebuilds the session from a fresh question snapshot and
// returns everyone to the lobby. Player connections stay open, but every
// player record is discarded and clients must join again.
func (h *Hub) resetSession() {
	h.stopCountdown()

	h.session = newSession(h.source.Snapshot())

	for c := range h.clients {
		c.playerID = ""
	}

	h.broadcastPlayers("session-reset", struct{}{})
	h.sendToHost("lobby", LobbyData{Pin: h.session.pin, Players: []string{}})

	logf(h.cfg, "QUIZ: New lobby open with PIN %s (%d questions)", h.session.pin, len(h.session.questions))
}

// startQuestion advances the cursor. Past the end of the bank the session
// goes straight to the final leaderboard.
func (h *Hub) startQuestion() {
	s := h.session
	s.index++

	if s.index >= len(s.questions) {
		h.finishGame()
		return
	}

	q := s.questions[s.index]

	s.phase = phaseQuestion
	s.remaining = q.TimeLimit
	s.answered = 0
	for _, p := range s.players {
		p.Answer = nil
		p.AnswerRemaining = nil
		p.LastPoints = 0
	}

	h.broadcast("question", QuestionData{
		Index:     s.index,
		Total:     len(s.questions),
		Question:  q.Text,
		Type:      q.Kind,
		Options:   q.Options,
		TimeLimit: q.TimeLimit,
	})

	h.startCountdown()

	logf(h.cfg, "QUIZ: Question %d/%d live in %s (%ds)", s.index+1, len(s.questions), s.pin, q.TimeLimit)
}

// revealAnswer is the single transition into the reveal phase. Both the
// countdown and the all-answered path land here; the phase guard makes
// whichever fires second a no-op.
func (h *Hub) revealAnswer() {
	s := h.session
	if s.phase != phaseQuestion {
		return
	}

	h.stopCountdown()
	s.phase = phaseReveal

	q := s.questions[s.index]
	isLast := s.index == len(s.questions)-1

	for _, p := range s.players {
		points := awardPoints(q, p)
		p.LastPoints = points
		p.Score += points

		answer := 0
		if p.Answer != nil {
			answer = *p.Answer
		}

		h.send(p.client, "result", ResultData{
			Correct:    q.Correct,
			YourAnswer: answer,
			Points:     points,
			TotalScore: p.Score,
			IsLast:     isLast,
		})
	}

	h.sendToHost("results", ResultsData{
		Correct:      q.Correct,
		Distribution: answerDistribution(q, s.players),
		Options:      q.Options,
		Leaderboard:  topPlayers(s.players),
		IsLast:       isLast,
	})

	logf(h.cfg, "QUIZ: Question %d revealed in %s (%d/%d answered)", s.index+1, s.pin, s.answered, len(s.players))
}

func (h *Hub) finishGame() {
	h.stopCountdown()
	h.session.phase = phaseLeaderboard

	h.broadcast("leaderboard", LeaderboardData{
		Leaderboard: rankPlayers(h.session.players),
	})

	logf(h.cfg, "QUIZ: Session %s finished", h.session.pin)
}

// ---- Countdown ----

// startCountdown replaces any running countdown with a fresh one. Ticks
// are tagged with a generation so anything a dying countdown managed to
// queue is discarded instead of double-firing a reveal.
func (h *Hub) startCountdown() {
	h.stopCountdown()

	h.countdownGen++
	stop := make(chan struct{})
	h.countdownStop = stop

	go func(gen int) {
		ticker := h.clock.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				select {
				case h.ticks <- countdownTick{gen: gen}:
				case <-stop:
					return
				}
			case <-stop:
				return
			}
		}
	}(h.countdownGen)
}

func (h *Hub) stopCountdown() {
	if h.countdownStop != nil {
		close(h.countdownStop)
		h.countdownStop = nil
	}
}

func (h *Hub) handleTick(t countdownTick) {
	s := h.session
	if t.gen != h.countdownGen || s.phase != phaseQuestion {
		return
	}

	s.remaining--
	if s.remaining < 0 {
		s.remaining = 0
	}

	h.broadcast("timer", TimerData{Remaining: s.remaining})

	if s.remaining == 0 {
		h.revealAnswer()
	}
}
