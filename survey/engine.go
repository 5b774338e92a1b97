package survey

import (
	"errors"
	"fmt"

	"github.com/korjavin/sanbot/models"
)

var (
	// ErrRatingOutOfRange is returned for ratings outside the -3..+3 scale.
	ErrRatingOutOfRange = errors.New("rating must be between -3 and +3")
	// ErrIncompleteAnswers is returned when scores are requested before
	// every question has an answer.
	ErrIncompleteAnswers = errors.New("not all questions have been answered")
	// ErrSurveyComplete is returned when an answer arrives after the last
	// question.
	ErrSurveyComplete = errors.New("survey is already complete")
)

// Category index sets of the SAN methodology: each index computes over its
// own ten question numbers. These are a property of the published
// questionnaire, not of this program.
var (
	wellBeingItems = [...]int{1, 2, 7, 8, 13, 14, 19, 20, 25, 26}
	activityItems  = [...]int{3, 4, 9, 10, 15, 16, 21, 22, 27, 28}
	moodItems      = [...]int{5, 6, 11, 12, 17, 18, 23, 24, 29, 30}
)

// Session is the mutable record of one user's in-progress survey attempt.
// Answers are keyed by question number.
type Session struct {
	CurrentIndex int
	Answers      map[int]int
}

// NewSession creates an empty session positioned at the first question.
func NewSession() *Session {
	return &Session{Answers: make(map[int]int)}
}

// Scores are the three SAN indices on the 1.0-7.0 scale. 5.0-5.5 is the
// published norm.
type Scores struct {
	WellBeing float64
	Activity  float64
	Mood      float64
}

// Engine sequences questions and computes scores over a loaded catalog.
type Engine struct {
	catalog []models.Question
}

// NewEngine creates an engine for the given catalog.
func NewEngine(catalog []models.Question) (*Engine, error) {
	if len(catalog) != CatalogSize {
		return nil, fmt.Errorf("catalog has %d questions, want %d", len(catalog), CatalogSize)
	}
	return &Engine{catalog: catalog}, nil
}

// NextQuestion returns the question the session is waiting on, or ok=false
// when every question has been answered.
func (e *Engine) NextQuestion(s *Session) (models.Question, bool) {
	if s.CurrentIndex >= len(e.catalog) {
		return models.Question{}, false
	}
	return e.catalog[s.CurrentIndex], true
}

// RecordAnswer stores the rating for the current question and advances the
// session by exactly one. On any error the session is left unchanged.
func (e *Engine) RecordAnswer(s *Session, rating int) error {
	if rating < -3 || rating > 3 {
		return ErrRatingOutOfRange
	}
	q, ok := e.NextQuestion(s)
	if !ok {
		return ErrSurveyComplete
	}
	s.Answers[q.Number] = rating
	s.CurrentIndex++
	return nil
}

// IsComplete reports whether the session has answered every question.
func (e *Engine) IsComplete(s *Session) bool {
	return s.CurrentIndex == len(e.catalog)
}

// ComputeScores sums the ratings of each category set and maps the raw
// -30..+30 sums onto the 1.0-7.0 scale.
func (e *Engine) ComputeScores(s *Session) (Scores, error) {
	wellBeing, err := categorySum(s.Answers, wellBeingItems[:])
	if err != nil {
		return Scores{}, err
	}
	activity, err := categorySum(s.Answers, activityItems[:])
	if err != nil {
		return Scores{}, err
	}
	mood, err := categorySum(s.Answers, moodItems[:])
	if err != nil {
		return Scores{}, err
	}

	return Scores{
		WellBeing: toScale(wellBeing),
		Activity:  toScale(activity),
		Mood:      toScale(mood),
	}, nil
}

func categorySum(answers map[int]int, items []int) (int, error) {
	sum := 0
	for _, number := range items {
		rating, ok := answers[number]
		if !ok {
			return 0, ErrIncompleteAnswers
		}
		sum += rating
	}
	return sum, nil
}

func toScale(sum int) float64 {
	return float64(sum+30) / 10
}
