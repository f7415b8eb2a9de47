/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math"
	"sort"
)

const (
	basePoints  = 1000
	bonusPoints = 1000
	topEntries  = 5
)

// awardPoints scores a single player's answer to a question. A wrong or
// missing answer is worth nothing; a correct one earns the base plus a
// time bonus proportional to how much of the countdown was left when the
// answer arrived. A correct index outside the option range can never be
// matched by a validated answer, so such questions simply score zero for
// everyone.
func awardPoints(q Question, p *Player) int {
	if p.Answer == nil || *p.Answer != q.Correct {
		return 0
	}

	limit := q.TimeLimit
	if limit < 1 {
		limit = defaultTimeLimit
	}

	remaining := 0
	if p.AnswerRemaining != nil {
		remaining = *p.AnswerRemaining
	}

	return basePoints + int(math.Round(bonusPoints*float64(remaining)/float64(limit)))
}

// rankPlayers returns leaderboard entries sorted by score descending.
// The sort is stable, so tied players keep their join order.
func rankPlayers(players []*Player) []LeaderboardEntry {
	ranked := make([]*Player, len(players))
	copy(ranked, players)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	entries := make([]LeaderboardEntry, 0, len(ranked))
	for _, p := range ranked {
		entries = append(entries, LeaderboardEntry{
			Name:  p.Name,
			Score: p.Score,
		})
	}

	return entries
}

// topPlayers trims a full ranking down to the host's per-question view.
func topPlayers(players []*Player) []LeaderboardEntry {
	entries := rankPlayers(players)
	if len(entries) > topEntries {
		entries = entries[:topEntries]
	}
	return entries
}

// answerDistribution counts submitted answers per option, 0-indexed.
func answerDistribution(q Question, players []*Player) []int {
	counts := make([]int, len(q.Options))
	for _, p := range players {
		if p.Answer == nil {
			continue
		}
		if idx := *p.Answer - 1; idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}
	return counts
}
