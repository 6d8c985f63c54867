package eventlog

import "time"

// Entry is a single system event, bounded in a Sink's ring buffer and
// mirrored to the JSON-Lines file when its level clears the sink's
// minimum.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Message   string
}

// FormattedTime renders the entry timestamp the way the on-disk record
// does: wall-clock time of day down to the millisecond.
func (e Entry) FormattedTime() string {
	return e.Timestamp.Format("15:04:05.000")
}

// record is the exact on-disk JSON-Lines shape (spec.md §6): epoch-seconds
// timestamp, level name, message, and a precomputed formatted_time.
type record struct {
	Timestamp     float64 `json:"timestamp"`
	Level         string  `json:"level"`
	Message       string  `json:"message"`
	FormattedTime string  `json:"formatted_time"`
}

func (e Entry) toRecord() record {
	return record{
		Timestamp:     float64(e.Timestamp.UnixNano()) / 1e9,
		Level:         e.Level.String(),
		Message:       e.Message,
		FormattedTime: e.FormattedTime(),
	}
}

func (r record) toEntry() Entry {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * 1e9)
	return Entry{
		Timestamp: time.Unix(sec, nsec),
		Level:     ParseLevel(r.Level),
		Message:   r.Message,
	}
}
