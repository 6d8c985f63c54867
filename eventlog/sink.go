package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink is the append-only system event log. It keeps a bounded in-memory
// ring of recent entries (for UI snapshots) and mirrors qualifying entries
// to a JSON-Lines file, rotating it to a single ".old" backup once the
// current file grows past capacity lines. It also mirrors every entry to a
// zerolog console logger, giving operators a leveled, colorized tail of the
// same events without having to read the JSON-Lines file.
//
// Safe for concurrent use: a single mutex guards both the ring and the file
// handle, matching the "one mutex around both" contract of spec.md §5.
type Sink struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	path     string
	file     *os.File
	debug    bool
	once     map[string]struct{}
	console  zerolog.Logger
}

// NewSink opens (or creates) the JSON-Lines file at path, loads prior
// entries (the ".old" backup first, then the current file, preserving
// chronological order per spec.md §6), and returns a ready Sink.
//
// debug controls whether Debug-level calls are recorded at all; it should
// be wired to the DEBUG=1 environment variable per spec.md §6.
func NewSink(path string, capacity int, debug bool, console zerolog.Logger) (*Sink, error) {
	if capacity <= 0 {
		capacity = 3000
	}
	s := &Sink{
		capacity: capacity,
		path:     path,
		debug:    debug,
		once:     make(map[string]struct{}),
		console:  console,
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("eventlog: create log dir: %w", err)
		}
	}

	s.loadFile(path + ".old")
	s.loadFile(path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open log file: %w", err)
	}
	s.file = f

	return s, nil
}

func (s *Sink) loadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(line, &r); err != nil {
			continue // skip malformed lines
		}
		s.appendRing(r.toEntry())
	}
}

func (s *Sink) appendRing(e Entry) {
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = s.entries[over:]
	}
}

// Debug logs at DEBUG level. It is a no-op unless the sink was constructed
// with debug=true.
func (s *Sink) Debug(msg string) { s.log(LevelDebug, msg) }

// Info logs at INFO level.
func (s *Sink) Info(msg string) { s.log(LevelInfo, msg) }

// Warning logs at WARNING level.
func (s *Sink) Warning(msg string) { s.log(LevelWarning, msg) }

// Error logs at ERROR level.
func (s *Sink) Error(msg string) { s.log(LevelError, msg) }

// Critical logs at CRITICAL level.
func (s *Sink) Critical(msg string) { s.log(LevelCritical, msg) }

// InfoOnce logs an INFO message only the first time it is seen (per exact
// message text), returning true if this call actually logged it.
func (s *Sink) InfoOnce(msg string) bool { return s.logOnce(LevelInfo, msg) }

// WarningOnce is the WARNING equivalent of InfoOnce.
func (s *Sink) WarningOnce(msg string) bool { return s.logOnce(LevelWarning, msg) }

// ErrorOnce is the ERROR equivalent of InfoOnce.
func (s *Sink) ErrorOnce(msg string) bool { return s.logOnce(LevelError, msg) }

// CriticalOnce is the CRITICAL equivalent of InfoOnce.
func (s *Sink) CriticalOnce(msg string) bool { return s.logOnce(LevelCritical, msg) }

// ClearOnce forgets a single (level, message) pair, allowing it to be
// logged again by a future *Once call.
func (s *Sink) ClearOnce(level Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.once, onceKey(level, msg))
}

// ClearOnceAll forgets every previously-logged-once message.
func (s *Sink) ClearOnceAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once = make(map[string]struct{})
}

func onceKey(level Level, msg string) string {
	return level.String() + ":" + msg
}

func (s *Sink) logOnce(level Level, msg string) bool {
	key := onceKey(level, msg)

	s.mu.Lock()
	if _, seen := s.once[key]; seen {
		s.mu.Unlock()
		return false
	}
	s.once[key] = struct{}{}
	s.mu.Unlock()

	s.log(level, msg)
	return true
}

func (s *Sink) log(level Level, msg string) {
	if level == LevelDebug && !s.debug {
		return
	}

	entry := Entry{Timestamp: time.Now(), Level: level, Message: msg}

	s.mu.Lock()
	s.appendRing(entry)
	s.writeFileLocked(entry)
	s.mu.Unlock()

	s.mirrorConsole(entry)
}

// writeFileLocked appends entry to the JSON-Lines file. Failures are
// swallowed: a log sink must never crash the control loop (spec.md §7).
func (s *Sink) writeFileLocked(entry Entry) {
	if s.file == nil {
		return
	}
	data, err := json.Marshal(entry.toRecord())
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = s.file.Write(data)
}

func (s *Sink) mirrorConsole(entry Entry) {
	var evt *zerolog.Event
	switch entry.Level {
	case LevelDebug:
		evt = s.console.Debug()
	case LevelWarning:
		evt = s.console.Warn()
	case LevelError:
		evt = s.console.Error()
	case LevelCritical:
		evt = s.console.Error().Bool("critical", true)
	default:
		evt = s.console.Info()
	}
	evt.Msg(entry.Message)
}

// Recent returns a copy of the most recent count entries (fewer if the
// ring holds less), oldest first.
func (s *Sink) Recent(count int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= 0 || count > len(s.entries) {
		count = len(s.entries)
	}
	start := len(s.entries) - count
	out := make([]Entry, count)
	copy(out, s.entries[start:])
	return out
}

// Rotate moves the current JSON-Lines file to a single ".old" backup once
// it exceeds capacity lines, per spec.md §6. It is a no-op otherwise.
func (s *Sink) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return nil // nothing to rotate yet
	}
	if info.Size() == 0 {
		return nil
	}

	lines, err := countLines(s.path)
	if err != nil {
		return nil
	}
	if lines <= s.capacity {
		return nil
	}

	backup := s.path + ".old"

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	_ = os.Remove(backup)
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("eventlog: rotate: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("eventlog: reopen after rotate: %w", err)
	}
	s.file = f
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// Close closes the underlying file handle.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
