package session

import (
	"sort"
	"strings"

	"github.com/majjihemanthkumar/mentimeter/internal/models"
)

// Pure projection functions over a single activity's raw responses. Each is
// recomputed in full on every mutation; none holds incremental state or
// retains references into the activity.

func projectPoll(a *models.Activity) *models.PollResults {
	results := make([]models.PollOptionResult, len(a.Options))
	for i, opt := range a.Options {
		var names []string
		for _, r := range a.PollResponses {
			if r.OptionIndex == i {
				names = append(names, r.Name)
			}
		}
		results[i] = models.PollOptionResult{Option: opt, Votes: len(names), VoterNames: names}
	}
	return &models.PollResults{
		ActivityID: a.ID,
		Kind:       models.ActivityPoll,
		Question:   a.Question,
		Results:    results,
		TotalVotes: len(a.PollResponses),
	}
}

func projectQuiz(a *models.Activity) *models.QuizResults {
	results := make([]models.QuizOptionResult, len(a.Options))
	for i, opt := range a.Options {
		count := 0
		for _, r := range a.QuizResponses {
			if r.OptionIndex == i {
				count++
			}
		}
		results[i] = models.QuizOptionResult{
			Option:    opt,
			Count:     count,
			IsCorrect: a.CorrectAnswer != nil && i == *a.CorrectAnswer,
		}
	}

	correctCount := 0
	correctOption := optionText(a.Options, a.CorrectAnswer)
	leaderboard := make([]models.QuizLeaderboardEntry, 0, len(a.QuizResponses))
	for _, r := range a.QuizResponses {
		if r.IsCorrect {
			correctCount++
		}
		idx := r.OptionIndex
		leaderboard = append(leaderboard, models.QuizLeaderboardEntry{
			Name:           r.Name,
			IsCorrect:      r.IsCorrect,
			Score:          r.Score,
			AnsweredOption: optionText(a.Options, &idx),
			CorrectOption:  correctOption,
			AnsweredAt:     r.SubmittedAt,
		})
	}
	// Correct answers first, fastest first among them.
	sort.SliceStable(leaderboard, func(i, j int) bool {
		if leaderboard[i].IsCorrect != leaderboard[j].IsCorrect {
			return leaderboard[i].IsCorrect
		}
		return leaderboard[i].AnsweredAt.Before(leaderboard[j].AnsweredAt)
	})

	return &models.QuizResults{
		ActivityID:    a.ID,
		Kind:          models.ActivityQuiz,
		Question:      a.Question,
		Results:       results,
		TotalAnswers:  len(a.QuizResponses),
		CorrectCount:  correctCount,
		CorrectAnswer: a.CorrectAnswer,
		CorrectOption: correctOption,
		Leaderboard:   leaderboard,
	}
}

func projectWordCloud(a *models.Activity) *models.WordCloudResults {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, w := range a.Words {
		key := strings.ToLower(w.Text)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	words := make([]models.WordCount, 0, len(order))
	for _, key := range order {
		words = append(words, models.WordCount{Text: key, Count: counts[key]})
	}
	// Descending by count; first-submission order breaks ties stably.
	sort.SliceStable(words, func(i, j int) bool { return words[i].Count > words[j].Count })

	return &models.WordCloudResults{
		ActivityID:       a.ID,
		Kind:             models.ActivityWordCloud,
		Question:         a.Question,
		Words:            words,
		TotalSubmissions: len(a.Words),
	}
}

func projectQA(a *models.Activity) *models.QAResults {
	questions := make([]models.QAQuestionResult, 0, len(a.Questions))
	for _, q := range a.Questions {
		questions = append(questions, models.QAQuestionResult{
			ID:          q.ID,
			Text:        q.Text,
			Name:        q.Name,
			UpvoteCount: len(q.Upvoters),
			SubmittedAt: q.SubmittedAt,
		})
	}
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].UpvoteCount > questions[j].UpvoteCount
	})

	return &models.QAResults{
		ActivityID:     a.ID,
		Kind:           models.ActivityQA,
		Question:       a.Question,
		Questions:      questions,
		TotalQuestions: len(a.Questions),
	}
}

// project dispatches on the activity's kind tag.
func project(a *models.Activity) interface{} {
	switch a.Kind {
	case models.ActivityPoll:
		return projectPoll(a)
	case models.ActivityQuiz:
		return projectQuiz(a)
	case models.ActivityWordCloud:
		return projectWordCloud(a)
	case models.ActivityQA:
		return projectQA(a)
	}
	return nil
}

func optionText(options []string, idx *int) string {
	if idx == nil || *idx < 0 || *idx >= len(options) {
		return "?"
	}
	return options[*idx]
}
