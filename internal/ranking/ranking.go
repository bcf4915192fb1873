// Package ranking turns retained per-quiz stats into user summaries and leaderboards.
package ranking

import (
	"sort"

	"quizcraze/internal/domain"
)

// Aggregate summarises a user's stats. No stats yields the zero summary.
func Aggregate(stats []domain.UserQuizStats) domain.StatsSummary {
	if len(stats) == 0 {
		return domain.StatsSummary{}
	}
	var pct, score float64
	total := 0
	for _, s := range stats {
		pct += s.CorrectAnswersPercentage
		score += float64(s.Score)
		total += s.CorrectAnswersCount
	}
	n := float64(len(stats))
	return domain.StatsSummary{
		AverageCorrectAnswersPercentage: pct / n,
		TotalCorrectAnswers:             total,
		AverageScore:                    score / n,
	}
}

// Build ranks users by average percentage, then total correct answers, then average score.
// When quizID is set each user's stats are narrowed to that quiz before aggregation.
// Users without stats stay in the ranking with zero aggregates. Ranks are 1-based
// positions; ties keep the order of user ids so repeated calls agree.
func Build(users []domain.UserWithStats, quizID string, amount int) ([]domain.RankingEntry, error) {
	if amount < 1 {
		return nil, domain.ErrInvalidAmount
	}

	entries := make([]domain.RankingEntry, 0, len(users))
	for _, u := range users {
		summary := Aggregate(filter(u.Stats, quizID))
		entries = append(entries, domain.RankingEntry{
			UserID:                          u.User.ID,
			Nickname:                        u.User.Nickname,
			AverageCorrectAnswersPercentage: summary.AverageCorrectAnswersPercentage,
			TotalCorrectAnswers:             summary.TotalCorrectAnswers,
			AverageScore:                    summary.AverageScore,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AverageCorrectAnswersPercentage != b.AverageCorrectAnswersPercentage {
			return a.AverageCorrectAnswersPercentage > b.AverageCorrectAnswersPercentage
		}
		if a.TotalCorrectAnswers != b.TotalCorrectAnswers {
			return a.TotalCorrectAnswers > b.TotalCorrectAnswers
		}
		return a.AverageScore > b.AverageScore
	})

	if len(entries) > amount {
		entries = entries[:amount]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// GroupByUser attaches each user's stats. Stats of unknown users are dropped.
func GroupByUser(users []domain.User, stats []domain.UserQuizStats) []domain.UserWithStats {
	index := make(map[string]int, len(users))
	out := make([]domain.UserWithStats, len(users))
	for i, u := range users {
		index[u.ID] = i
		out[i].User = u
	}
	for _, s := range stats {
		if i, ok := index[s.UserID]; ok {
			out[i].Stats = append(out[i].Stats, s)
		}
	}
	return out
}

func filter(stats []domain.UserQuizStats, quizID string) []domain.UserQuizStats {
	if quizID == "" {
		return stats
	}
	out := make([]domain.UserQuizStats, 0, 1)
	for _, s := range stats {
		if s.QuizID == quizID {
			out = append(out, s)
		}
	}
	return out
}
