package devotional

import (
	"errors"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCompleteStudy(t *testing.T) {
	testCases := []struct {
		name       string
		stats      UserStats
		today      string
		wantStreak int
		granted    bool
	}{
		{"first study", UserStats{}, "2024-03-10", 1, true},
		{"consecutive day", UserStats{Streak: 4, LastStudyDate: "2024-03-09"}, "2024-03-10", 5, true},
		{"same day", UserStats{Streak: 4, LastStudyDate: "2024-03-10"}, "2024-03-10", 4, false},
		{"gap restarts", UserStats{Streak: 4, LastStudyDate: "2024-03-01"}, "2024-03-10", 1, true},
		{"month boundary", UserStats{Streak: 2, LastStudyDate: "2024-02-29"}, "2024-03-01", 3, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, granted := tc.stats.CompleteStudy(date(tc.today))
			if granted != tc.granted {
				t.Errorf("Expected granted=%v, got %v", tc.granted, granted)
			}
			if got.Streak != tc.wantStreak {
				t.Errorf("Expected streak %d, got %d", tc.wantStreak, got.Streak)
			}
			wantEmeralds := tc.stats.Emeralds
			if tc.granted {
				wantEmeralds += StudyReward
			}
			if got.Emeralds != wantEmeralds {
				t.Errorf("Expected %d emeralds, got %d", wantEmeralds, got.Emeralds)
			}
			if got.LastStudyDate != tc.today {
				t.Errorf("Expected last study date %s, got %s", tc.today, got.LastStudyDate)
			}
		})
	}
}

func TestCheckStreak(t *testing.T) {
	testCases := []struct {
		name  string
		stats UserStats
		want  UserStats
	}{
		{
			"studied yesterday",
			UserStats{Streak: 3, LastStudyDate: "2024-03-09"},
			UserStats{Streak: 3, LastStudyDate: "2024-03-09"},
		},
		{
			"missed with protector",
			UserStats{Streak: 3, LastStudyDate: "2024-03-07", Protectors: 2},
			UserStats{Streak: 3, LastStudyDate: "2024-03-09", Protectors: 1},
		},
		{
			"missed without protector",
			UserStats{Streak: 3, LastStudyDate: "2024-03-07"},
			UserStats{Streak: 0, LastStudyDate: "2024-03-07"},
		},
		{
			"never studied",
			UserStats{},
			UserStats{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.stats.CheckStreak(date("2024-03-10")); got != tc.want {
				t.Errorf("CheckStreak() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestProtectorKeepsStreak(t *testing.T) {
	s := UserStats{Streak: 5, LastStudyDate: "2024-03-07", Protectors: 1}
	today := date("2024-03-10")
	s, granted := s.CheckStreak(today).CompleteStudy(today)
	if !granted || s.Streak != 6 || s.Protectors != 0 {
		t.Errorf("Expected protected streak 6, got %+v", s)
	}
}

func TestBuyProtector(t *testing.T) {
	s := UserStats{Emeralds: ProtectorCost - 1}
	if _, err := s.BuyProtector(); !errors.Is(err, ErrNotEnoughEmeralds) {
		t.Fatalf("Expected ErrNotEnoughEmeralds, got %v", err)
	}
	s = s.CompleteQuiz(3)
	got, err := s.BuyProtector()
	if err != nil {
		t.Fatalf("BuyProtector() error = %v", err)
	}
	if got.Emeralds != 2 || got.Protectors != 1 {
		t.Errorf("Unexpected stats %+v", got)
	}
	if s.CompleteQuiz(0).Emeralds != s.Emeralds {
		t.Errorf("Expected a zero score to grant nothing")
	}
}

func TestCompleteJournalEntry(t *testing.T) {
	s := UserStats{Streak: 2, Emeralds: 5}
	got := s.CompleteJournalEntry()
	if got.Emeralds != 5+JournalReward || got.Streak != 2 {
		t.Errorf("Unexpected stats %+v", got)
	}
}
