/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
)

func intPtr(n int) *int {
	return &n
}

func TestAwardPoints(t *testing.T) {
	question := Question{
		Text:      "test",
		Kind:      kindMultipleChoice,
		Options:   []string{"a", "b", "c", "d"},
		Correct:   2,
		TimeLimit: 20,
	}

	tests := []struct {
		name   string
		player Player
		want   int
	}{
		{
			name:   "instant correct answer earns maximal bonus",
			player: Player{Answer: intPtr(2), AnswerRemaining: intPtr(20)},
			want:   2000,
		},
		{
			name:   "correct answer at the buzzer earns base only",
			player: Player{Answer: intPtr(2), AnswerRemaining: intPtr(0)},
			want:   1000,
		},
		{
			name:   "partial bonus is proportional to time left",
			player: Player{Answer: intPtr(2), AnswerRemaining: intPtr(7)},
			want:   1350,
		},
		{
			name:   "wrong answer scores nothing",
			player: Player{Answer: intPtr(1), AnswerRemaining: intPtr(20)},
			want:   0,
		},
		{
			name:   "no answer scores nothing",
			player: Player{},
			want:   0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := awardPoints(question, &tc.player)
			if got != tc.want {
				t.Errorf("awardPoints() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAwardPointsEarlierAnswerNeverScoresLess(t *testing.T) {
	question := Question{
		Options:   []string{"a", "b"},
		Correct:   1,
		TimeLimit: 17,
	}

	prev := -1
	for remaining := 0; remaining <= question.TimeLimit; remaining++ {
		p := Player{Answer: intPtr(1), AnswerRemaining: intPtr(remaining)}
		got := awardPoints(question, &p)
		if got < prev {
			t.Fatalf("score decreased from %d to %d at remaining=%d", prev, got, remaining)
		}
		prev = got
	}
}

func TestAwardPointsOutOfRangeCorrectIndex(t *testing.T) {
	question := Question{
		Options:   []string{"a", "b"},
		Correct:   7,
		TimeLimit: 20,
	}

	for answer := 1; answer <= len(question.Options); answer++ {
		p := Player{Answer: intPtr(answer), AnswerRemaining: intPtr(20)}
		if got := awardPoints(question, &p); got != 0 {
			t.Errorf("answer %d scored %d against unmatchable correct index, want 0", answer, got)
		}
	}
}

func TestRankPlayersTiesKeepJoinOrder(t *testing.T) {
	players := []*Player{
		{Name: "A", Score: 300},
		{Name: "B", Score: 500},
		{Name: "C", Score: 500},
	}

	entries := rankPlayers(players)

	want := []string{"B", "C", "A"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Name, name)
		}
	}
}

func TestTopPlayersTrimsToFive(t *testing.T) {
	players := make([]*Player, 0, 8)
	for i := 0; i < 8; i++ {
		players = append(players, &Player{
			Name:  string(rune('A' + i)),
			Score: 100 * (8 - i),
		})
	}

	entries := topPlayers(players)

	if len(entries) != topEntries {
		t.Fatalf("got %d entries, want %d", len(entries), topEntries)
	}
	if entries[0].Name != "A" || entries[4].Name != "E" {
		t.Errorf("unexpected top entries: %+v", entries)
	}
}

func TestAnswerDistribution(t *testing.T) {
	question := Question{
		Options: []string{"a", "b", "c"},
		Correct: 1,
	}

	players := []*Player{
		{Answer: intPtr(1)},
		{Answer: intPtr(1)},
		{Answer: intPtr(3)},
		{},
	}

	got := answerDistribution(question, players)

	want := []int{2, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("distribution[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
