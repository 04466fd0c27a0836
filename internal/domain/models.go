package domain

import "time"

// DefaultOrder sorts questions and categories without an explicit order last.
const DefaultOrder = 999

// TimeoutSentinel is recorded as the selected answer when a question's timer expires.
const TimeoutSentinel = "(time expired)"

// Image references an illustration attached to a question.
type Image struct {
	URL string `json:"url" yaml:"url"`
}

// Question is a multiple-choice question with exactly one correct choice.
type Question struct {
	ID       string   `json:"id" yaml:"id"`
	Prompt   string   `json:"question" yaml:"question"`
	Choices  []string `json:"choices" yaml:"choices"`
	Answer   string   `json:"answer" yaml:"answer"`
	Category string   `json:"category" yaml:"category"`
	Image    *Image   `json:"image,omitempty" yaml:"image,omitempty"`
	Order    int      `json:"order" yaml:"order"`
}

// AnswerRecord captures what happened to one question in a session.
type AnswerRecord struct {
	Question      string   `json:"question"`
	CorrectAnswer string   `json:"correctAnswer"`
	Choices       []string `json:"choices"`
	Selected      string   `json:"selectedAnswer"`
	Image         *Image   `json:"image,omitempty"`
}

// Correct reports whether the selected answer matches the correct one.
func (r AnswerRecord) Correct() bool {
	return r.Selected == r.CorrectAnswer
}

// TimedOut reports whether the record was produced by timer expiry.
func (r AnswerRecord) TimedOut() bool {
	return r.Selected == TimeoutSentinel
}

// Accuracy is the last-known (correct, total) pair for one category.
type Accuracy struct {
	TotalAttempts  int `json:"totalAttempts"`
	CorrectAnswers int `json:"correctAnswers"`
}

// Cleared reports a perfect score on a non-empty attempt.
func (a Accuracy) Cleared() bool {
	return a.TotalAttempts > 0 && a.CorrectAnswers == a.TotalAttempts
}

// AccuracyByCategory maps category names to their accuracy record.
type AccuracyByCategory map[string]Accuracy

// ClearCount counts categories with a perfect last attempt.
func (m AccuracyByCategory) ClearCount() int {
	n := 0
	for _, a := range m {
		if a.Cleared() {
			n++
		}
	}
	return n
}

// User is a registered quiz player.
type User struct {
	UserID    string     `json:"userId"`
	Nickname  string     `json:"nickname"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// Ranking is one row of the clear-count leaderboard.
type Ranking struct {
	Nickname   string `json:"nickname"`
	ClearCount int    `json:"clearCount"`
}

// Result is the scored outcome of a completed quiz session.
type Result struct {
	Category      string         `json:"category"`
	Records       []AnswerRecord `json:"records"`
	Score         int            `json:"score"`
	Total         int            `json:"total"`
	Review        []AnswerRecord `json:"review"`
	ReviewOffered bool           `json:"reviewOffered"`
}
