package store

import "time"

type Project struct {
	ID        int64
	Name      string
	Number    string
	Archived  bool
	CreatedAt time.Time
}

// WorkSession is one continuous attendance interval for one project.
// EndTime is nil while the session is running.
type WorkSession struct {
	ID              int64
	ProjectID       int64
	StartTime       time.Time
	EndTime         *time.Time
	StartedManually bool
	Note            string

	// Pauses is populated by the session queries, ordered by start.
	Pauses []PauseSegment
}

// Running reports whether the session has no end timestamp.
func (s WorkSession) Running() bool { return s.EndTime == nil }

// OpenPause returns the session's pause without end timestamp, if any.
func (s WorkSession) OpenPause() *PauseSegment {
	for i := range s.Pauses {
		if s.Pauses[i].EndTime == nil {
			return &s.Pauses[i]
		}
	}
	return nil
}

// PauseSegment is a sub-interval of a session that does not count as worked.
type PauseSegment struct {
	ID        int64
	SessionID int64
	StartTime time.Time
	EndTime   *time.Time
}

func (p PauseSegment) Open() bool { return p.EndTime == nil }

// SessionEdit is a write-once audit record of a retroactive change.
type SessionEdit struct {
	ID        int64
	SessionID int64
	Field     string
	OldValue  *string
	NewValue  *string
	Reason    string
	EditedAt  time.Time
}

type Setting struct {
	Key   string
	Value string
}

// SessionFilter is used to filter sessions in queries. From/To select
// sessions whose span [start, end ?? Now) overlaps [From, To).
type SessionFilter struct {
	ProjectID  *int64
	From       *time.Time
	To         *time.Time
	Now        time.Time
	Limit      int
	Descending bool
}
