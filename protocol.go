/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
)

// Every websocket message, in either direction, is a typed envelope.
// Unknown or unparseable messages are dropped without a reply.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func envelope(msgType string, data any) any {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{Type: msgType}
	}
	return Envelope{Type: msgType, Data: raw}
}

func unmarshalData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return errors.New("missing message data")
	}
	return json.Unmarshal(env.Data, v)
}

// Messages coming from clients
type JoinData struct {
	Pin  string `json:"pin"`
	Name string `json:"name"`
}

type AnswerData struct {
	Answer int `json:"answer"`
}

// Messages sent to clients
type JoinedData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LobbyData struct {
	Pin     string   `json:"pin"`
	Players []string `json:"players"`
}

type QuestionData struct {
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Question  string   `json:"question"`
	Type      string   `json:"type"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
}

type TimerData struct {
	Remaining int `json:"remaining"`
}

type AnswerCountData struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// ResultData goes to each player after a reveal.
type ResultData struct {
	Correct    int  `json:"correct"`
	YourAnswer int  `json:"yourAnswer"`
	Points     int  `json:"points"`
	TotalScore int  `json:"totalScore"`
	IsLast     bool `json:"isLast"`
}

// ResultsData goes to the host after a reveal, with the answer
// distribution and the current top of the leaderboard.
type ResultsData struct {
	Correct      int                `json:"correct"`
	Distribution []int              `json:"distribution"`
	Options      []string           `json:"options"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	IsLast       bool               `json:"isLast"`
}

type LeaderboardData struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type PlayerEventData struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Players []string `json:"players"`
}

type ErrorData struct {
	Message string `json:"message"`
}
