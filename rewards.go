package devotional

import (
	"errors"
	"time"
)

const (
	StudyReward         = 10 // emeralds for the first study of a day
	CorrectAnswerReward = 1  // emeralds per correct quiz answer
	JournalReward       = 1  // emeralds for the first answer to a reflection prompt
	ProtectorCost       = 50
)

// ErrNotEnoughEmeralds is returned when a purchase exceeds the balance.
var ErrNotEnoughEmeralds = errors.New("not enough emeralds")

const dateLayout = "2006-01-02"

// UserStats is the gamification state. Rewards are applied by callers after a
// study is generated or a quiz reaches SessionComplete; the engine never sees them.
type UserStats struct {
	Streak        int    `json:"streak"`
	LastStudyDate string `json:"last_study_date,omitempty"`
	Emeralds      int    `json:"emeralds"`
	Protectors    int    `json:"protectors"`
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysSince returns whole days between the last study and today, or -1 when there is none.
func (s UserStats) daysSince(today time.Time) int {
	if s.LastStudyDate == "" {
		return -1
	}
	last, err := time.Parse(dateLayout, s.LastStudyDate)
	if err != nil {
		return -1
	}
	return int(day(today).Sub(last).Hours() / 24)
}

// StudiedToday reports whether today's study reward was already granted.
func (s UserStats) StudiedToday(today time.Time) bool {
	return s.LastStudyDate == day(today).Format(dateLayout)
}

// CheckStreak handles a missed day. A protector, when available, is consumed
// and bridges the gap to yesterday; otherwise the streak resets.
func (s UserStats) CheckStreak(today time.Time) UserStats {
	if s.daysSince(today) <= 1 {
		return s
	}
	if s.Protectors > 0 {
		s.Protectors--
		s.LastStudyDate = day(today).AddDate(0, 0, -1).Format(dateLayout)
		return s
	}
	s.Streak = 0
	return s
}

// CompleteStudy grants the daily reward once per day and extends or restarts the streak.
func (s UserStats) CompleteStudy(today time.Time) (UserStats, bool) {
	if s.StudiedToday(today) {
		return s, false
	}
	if n := s.daysSince(today); n == 1 {
		s.Streak++
	} else {
		s.Streak = 1
	}
	s.LastStudyDate = day(today).Format(dateLayout)
	s.Emeralds += StudyReward
	return s, true
}

// CompleteQuiz grants emeralds for the correct answers of a finished session.
func (s UserStats) CompleteQuiz(score int) UserStats {
	if score > 0 {
		s.Emeralds += score * CorrectAnswerReward
	}
	return s
}

// CompleteJournalEntry grants the reward for a newly answered reflection prompt.
func (s UserStats) CompleteJournalEntry() UserStats {
	s.Emeralds += JournalReward
	return s
}

// BuyProtector exchanges emeralds for one streak protector.
func (s UserStats) BuyProtector() (UserStats, error) {
	if s.Emeralds < ProtectorCost {
		return s, ErrNotEnoughEmeralds
	}
	s.Emeralds -= ProtectorCost
	s.Protectors++
	return s, nil
}
