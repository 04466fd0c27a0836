package domain

import (
	"math/rand"
	"sort"
	"strings"
)

// RawQuestion is the loosely-typed shape headless content stores return:
// up to four optional choice fields and optional image and order.
type RawQuestion struct {
	ID       string  `json:"id" yaml:"id"`
	Question string  `json:"question" yaml:"question"`
	Choices1 *string `json:"choices1,omitempty" yaml:"choices1,omitempty"`
	Choices2 *string `json:"choices2,omitempty" yaml:"choices2,omitempty"`
	Choices3 *string `json:"choices3,omitempty" yaml:"choices3,omitempty"`
	Choices4 *string `json:"choices4,omitempty" yaml:"choices4,omitempty"`
	Answer   string  `json:"answer" yaml:"answer"`
	Category string  `json:"category" yaml:"category"`
	Image    *Image  `json:"image,omitempty" yaml:"image,omitempty"`
	Order    *int    `json:"order,omitempty" yaml:"order,omitempty"`
}

// Normalize folds the choice fields into an ordered list of non-blank strings,
// keeps the image only when it carries a URL, and defaults a missing order.
func (r RawQuestion) Normalize() Question {
	choices := make([]string, 0, 4)
	for _, c := range []*string{r.Choices1, r.Choices2, r.Choices3, r.Choices4} {
		if c != nil && strings.TrimSpace(*c) != "" {
			choices = append(choices, *c)
		}
	}
	var image *Image
	if r.Image != nil && r.Image.URL != "" {
		image = &Image{URL: r.Image.URL}
	}
	order := DefaultOrder
	if r.Order != nil {
		order = *r.Order
	}
	return Question{
		ID:       r.ID,
		Prompt:   r.Question,
		Choices:  choices,
		Answer:   r.Answer,
		Category: r.Category,
		Image:    image,
		Order:    order,
	}
}

// NormalizeAll normalizes raw questions and drops the ones a session cannot use.
func NormalizeAll(raws []RawQuestion) []Question {
	out := make([]Question, 0, len(raws))
	for _, raw := range raws {
		q := raw.Normalize()
		if !ValidQuestion(q) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// ValidQuestion requires at least one choice and an answer that is one of them.
func ValidQuestion(q Question) bool {
	if len(q.Choices) == 0 {
		return false
	}
	for _, c := range q.Choices {
		if c == q.Answer {
			return true
		}
	}
	return false
}

// OrderCategories de-duplicates category names and sorts them by display order.
// A category keeps the position it was first seen at and the order value it was
// last seen with; ties keep first-seen position.
func OrderCategories(questions []Question) []string {
	type entry struct {
		name  string
		order int
	}
	index := make(map[string]int)
	entries := make([]entry, 0)
	for _, q := range questions {
		if q.Category == "" {
			continue
		}
		if i, ok := index[q.Category]; ok {
			entries[i].order = q.Order
			continue
		}
		index[q.Category] = len(entries)
		entries = append(entries, entry{name: q.Category, order: q.Order})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// ShuffleQuestions returns a new slice in random order; each question's
// choices are shuffled independently. The input is left untouched.
func ShuffleQuestions(questions []Question, rnd *rand.Rand) []Question {
	shuffled := make([]Question, len(questions))
	copy(shuffled, questions)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for i := range shuffled {
		choices := make([]string, len(shuffled[i].Choices))
		copy(choices, shuffled[i].Choices)
		rnd.Shuffle(len(choices), func(a, b int) {
			choices[a], choices[b] = choices[b], choices[a]
		})
		shuffled[i].Choices = choices
	}
	return shuffled
}

// QuestionsFromRecords rebuilds reviewable questions from answer records.
func QuestionsFromRecords(records []AnswerRecord) []Question {
	out := make([]Question, len(records))
	for i, r := range records {
		out[i] = Question{
			Prompt:  r.Question,
			Choices: append([]string(nil), r.Choices...),
			Answer:  r.CorrectAnswer,
			Image:   r.Image,
			Order:   DefaultOrder,
		}
	}
	return out
}

// ReviewSet filters the records answered incorrectly, timeouts included.
func ReviewSet(records []AnswerRecord) []AnswerRecord {
	review := make([]AnswerRecord, 0)
	for _, r := range records {
		if !r.Correct() {
			review = append(review, r)
		}
	}
	return review
}

// CountCorrect counts records whose selected answer matches.
func CountCorrect(records []AnswerRecord) int {
	n := 0
	for _, r := range records {
		if r.Correct() {
			n++
		}
	}
	return n
}

// BuildRankings turns per-user accuracy into a leaderboard ordered by clear
// count, highest first. Users without a nickname are shown as "Unknown".
func BuildRankings(accuracy map[string]AccuracyByCategory, nicknames map[string]string) []Ranking {
	rankings := make([]Ranking, 0, len(accuracy))
	for userID, byCategory := range accuracy {
		nickname, ok := nicknames[userID]
		if !ok || nickname == "" {
			nickname = "Unknown"
		}
		rankings = append(rankings, Ranking{Nickname: nickname, ClearCount: byCategory.ClearCount()})
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].ClearCount != rankings[j].ClearCount {
			return rankings[i].ClearCount > rankings[j].ClearCount
		}
		return rankings[i].Nickname < rankings[j].Nickname
	})
	return rankings
}

// ValidUserID accepts non-empty strings made only of ASCII digits.
func ValidUserID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
