package player

import "sync"

// mailbox carries Ended signals off the output goroutine. push never
// blocks; signals are delivered in order and never dropped.
type mailbox struct {
	mu      sync.Mutex
	pending []Ended
	notify  chan struct{}
	out     chan Ended
	done    chan struct{}
	stopped chan struct{}
	accept  func(Ended) bool
	once    sync.Once
}

func newMailbox(accept func(Ended) bool) *mailbox {
	m := &mailbox{
		notify:  make(chan struct{}, 1),
		out:     make(chan Ended),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		accept:  accept,
	}
	go m.run()
	return m
}

func (m *mailbox) push(e Ended) {
	m.mu.Lock()
	m.pending = append(m.pending, e)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) run() {
	defer close(m.stopped)
	for {
		select {
		case <-m.done:
			return
		case <-m.notify:
		}

		m.mu.Lock()
		batch := m.pending
		m.pending = nil
		m.mu.Unlock()

		for _, e := range batch {
			if !m.accept(e) {
				continue
			}
			select {
			case m.out <- e:
			case <-m.done:
				return
			}
		}
	}
}

func (m *mailbox) close() {
	m.once.Do(func() { close(m.done) })
	<-m.stopped
}
