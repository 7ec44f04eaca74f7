package daily

import (
	"context"
	"database/sql"
	"fmt"
)

// Result is one finished game.
type Result struct {
	Session    string `json:"-"`
	Date       string `json:"date"`
	WordLength int    `json:"wordLength"`
	Unlimited  bool   `json:"unlimited"`
	Attempts   int    `json:"attempts"`
	Won        bool   `json:"won"`
}

// Stats summarises a session's finished games.
type Stats struct {
	Played        int         `json:"played"`
	Wins          int         `json:"wins"`
	CurrentStreak int         `json:"currentStreak"`
	MaxStreak     int         `json:"maxStreak"`
	Distribution  map[int]int `json:"distribution"` // attempts -> wins
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Record inserts a finished game.
func (s *Store) Record(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results(session, date, word_length, unlimited, attempts, won)
		VALUES(?,?,?,?,?,?)`, r.Session, r.Date, r.WordLength, r.Unlimited, r.Attempts, r.Won,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Stats folds every result of session in insertion order.
func (s *Store) Stats(ctx context.Context, session string) (Stats, error) {
	st := Stats{Distribution: map[int]int{}}
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempts, won FROM results WHERE session=? ORDER BY id ASC`, session)
	if err != nil {
		return st, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var attempts int
		var won bool
		if err := rows.Scan(&attempts, &won); err != nil {
			return st, err
		}
		st.add(attempts, won)
	}
	return st, rows.Err()
}

func (st *Stats) add(attempts int, won bool) {
	st.Played++
	if !won {
		st.CurrentStreak = 0
		return
	}
	st.Wins++
	st.CurrentStreak++
	if st.CurrentStreak > st.MaxStreak {
		st.MaxStreak = st.CurrentStreak
	}
	st.Distribution[attempts]++
}
