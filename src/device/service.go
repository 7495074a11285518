package device

import "context"

// Service queues functions for the goroutine that owns an input library.
// Libraries bound to one OS thread route every call through Do, and that
// thread runs them from RunPending, Send or Serve.
type Service struct {
	calls chan func()
}

func NewService() *Service {
	return &Service{
		calls: make(chan func()),
	}
}

// Do runs fn on the serving goroutine and waits for it. The serving goroutine
// must keep serving until every caller of Do has stopped.
func (s *Service) Do(fn func()) {
	done := make(chan struct{})
	s.calls <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// RunPending runs the calls already waiting and returns
func (s *Service) RunPending() {
	for {
		select {
		case fn := <-s.calls:
			fn()
		default:
			return
		}
	}
}

// Send delivers event, running calls while the receiver is busy. It returns
// false if ctx is done first.
func (s *Service) Send(ctx context.Context, events chan<- Event, event Event) bool {
	for {
		select {
		case events <- event:
			return true
		case fn := <-s.calls:
			fn()
		case <-ctx.Done():
			return false
		}
	}
}

// Serve runs calls until done is closed
func (s *Service) Serve(done <-chan struct{}) {
	for {
		select {
		case fn := <-s.calls:
			fn()
		case <-done:
			return
		}
	}
}
