package cli

import "quizcraze/internal/domain"

// Sample content for running without a database, and for `migrate --seed`.

func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:         "quiz-1",
			Name:       "Warm-up arithmetic",
			Category:   "Math",
			Difficulty: domain.Easy,
			Questions: []domain.Question{
				{
					ID:      "q1",
					Type:    domain.SingleChoice,
					Content: "What is 2 + 2?",
					Answers: []domain.Answer{
						{Content: "3"},
						{Content: "4", IsCorrect: true},
						{Content: "5"},
					},
					TimeLimitSeconds: 15,
				},
				{
					ID:      "q2",
					Type:    domain.MultipleChoice,
					Content: "Which numbers are prime?",
					Answers: []domain.Answer{
						{Content: "2", IsCorrect: true},
						{Content: "4"},
						{Content: "7", IsCorrect: true},
						{Content: "9"},
					},
				},
				{
					ID:      "q3",
					Type:    domain.Open,
					Content: "How many sides does a hexagon have? (in words)",
					Hint:    "Think of a honeycomb cell.",
					Answers: []domain.Answer{{Content: "six", IsCorrect: true}},
				},
			},
		},
		{
			ID:         "quiz-2",
			Name:       "European capitals",
			Category:   "Geography",
			Difficulty: domain.Hard,
			Questions: []domain.Question{
				{
					ID:      "c1",
					Type:    domain.SingleChoice,
					Content: "Capital of Slovenia?",
					Answers: []domain.Answer{
						{Content: "Ljubljana", IsCorrect: true},
						{Content: "Bratislava"},
						{Content: "Zagreb"},
					},
					TimeLimitSeconds: 10,
				},
				{
					ID:      "c2",
					Type:    domain.Open,
					Content: "Capital of Poland?",
					Answers: []domain.Answer{{Content: "Warsaw", IsCorrect: true}},
				},
			},
		},
	}
}

func sampleQuizzesByID() map[string]domain.Quiz {
	out := make(map[string]domain.Quiz)
	for _, q := range sampleQuizzes() {
		out[q.ID] = q
	}
	return out
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: "u1", Nickname: "alice", QuizzesCreated: 2},
		{ID: "u2", Nickname: "bob"},
		{ID: "u3", Nickname: "carol", QuizzesCreated: 5},
	}
}

func sampleAchievements() []domain.Achievement {
	return []domain.Achievement{
		{ID: "first-quiz", Name: "First Steps", Description: "Complete your first quiz", Icon: "footprints", Criteria: domain.QuizzesCompleted, TargetValue: 1},
		{ID: "ten-quizzes", Name: "Quiz Addict", Description: "Complete 10 different quizzes", Icon: "flame", Criteria: domain.QuizzesCompleted, TargetValue: 10},
		{ID: "creator", Name: "Creator", Description: "Create 5 quizzes", Icon: "pencil", Criteria: domain.QuizzesCreated, TargetValue: 5},
		{ID: "sharpshooter", Name: "Sharpshooter", Description: "Keep an average accuracy of 90%", Icon: "target", Criteria: domain.Accuracy, TargetValue: 90},
	}
}
