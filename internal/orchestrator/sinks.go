package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/forgelab/kforge/internal/runner"
)

// LogSink persists build output durably without ever blocking the
// producer. Appends land in an unbounded in-memory queue; a dedicated
// goroutine drains the queue to the log file. An optional follow
// channel gets a best-effort copy of each line and may miss lines when
// its consumer lags.
type LogSink struct {
	file   *os.File
	follow chan<- string

	mu       sync.Mutex
	queue    []string
	closed   bool
	writeErr error

	wake chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

// NewLogSink opens the log file for appending and starts the drain
// goroutine. follow may be nil.
func NewLogSink(path string, follow chan<- string) (*LogSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open build log: %w", err)
	}

	s := &LogSink{
		file:   file,
		follow: follow,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s, nil
}

// Append queues one line. It never blocks and never fails; write
// problems surface from Close.
func (s *LogSink) Append(line string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, line)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close drains the remaining queue, syncs the file, and reports the
// first write error encountered over the sink's lifetime.
func (s *LogSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		select {
		case s.wake <- struct{}{}:
		default:
		}
		<-s.done

		if err := s.file.Sync(); err != nil && s.writeErr == nil {
			s.writeErr = err
		}
		if err := s.file.Close(); err != nil && s.writeErr == nil {
			s.writeErr = err
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeErr
}

func (s *LogSink) drain() {
	defer close(s.done)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		if len(batch) == 0 {
			if closed {
				return
			}
			<-s.wake
			continue
		}

		for _, line := range batch {
			if _, err := s.file.WriteString(line + "\n"); err != nil {
				s.mu.Lock()
				if s.writeErr == nil {
					s.writeErr = fmt.Errorf("write build log: %w", err)
				}
				s.mu.Unlock()
			}
			if s.follow != nil {
				select {
				case s.follow <- line:
				default:
				}
			}
		}
	}
}

// ProgressSink coalesces output lines to a latest-value stream for a
// presentation layer. Appends never block; when the consumer lags,
// intermediate values are dropped and only the newest survives.
type ProgressSink struct {
	out chan<- string

	mu     sync.Mutex
	latest string
	dirty  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

// NewProgressSink starts a forwarder onto out. out may be nil, in
// which case the sink discards everything.
func NewProgressSink(out chan<- string) *ProgressSink {
	p := &ProgressSink{
		out:  out,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	if out == nil {
		close(p.done)
		return p
	}
	go p.forward()
	return p
}

// Append records line as the newest value. Never blocks.
func (p *ProgressSink) Append(line string) {
	p.mu.Lock()
	p.latest = line
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close stops the forwarder. A value not yet delivered may be dropped.
func (p *ProgressSink) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	<-p.done
}

func (p *ProgressSink) forward() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
		case <-p.quit:
		}

		p.mu.Lock()
		line, dirty := p.latest, p.dirty
		p.dirty = false
		p.mu.Unlock()

		if !dirty {
			select {
			case <-p.quit:
				return
			default:
			}
			continue
		}

		select {
		case p.out <- line:
		case <-p.quit:
			return
		}
	}
}

// tee fans one output stream to several sinks.
type tee []runner.LineSink

func (t tee) Append(line string) {
	for _, s := range t {
		s.Append(line)
	}
}
