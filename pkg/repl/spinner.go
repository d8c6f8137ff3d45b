package repl

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner displays an animated loading indicator while the assistant thinks
type Spinner struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	writer  io.Writer
	message string
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a new spinner
func NewSpinner(writer io.Writer, message string) *Spinner {
	return &Spinner{
		writer:  writer,
		message: message,
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(s.stop, s.done)
}

// Stop stops the animation and clears the spinner line
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	fmt.Fprint(s.writer, "\r\033[K")
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fmt.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], s.message)
		}
	}
}
