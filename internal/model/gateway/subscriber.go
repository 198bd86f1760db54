package gateway

import "sync"

// subscriber holds the changes a reader has not taken yet, at most one per
// user. A later change of the same user replaces the pending one, so a slow
// reader still hears about every user that changed.
type subscriber struct {
	out  chan Change
	wake chan struct{}
	done chan struct{}
	stop sync.Once

	mu      sync.Mutex
	pending map[string]Change
	order   []string
}

func newSubscriber() *subscriber {
	s := &subscriber{
		out:     make(chan Change, subscriberBuffer),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[string]Change),
	}
	go s.pump()
	return s
}

func (s *subscriber) offer(c Change) {
	s.mu.Lock()
	if _, ok := s.pending[c.UserID]; ok {
		observeCoalesced()
	} else {
		s.order = append(s.order, c.UserID)
	}
	s.pending[c.UserID] = c
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]Change, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, s.pending[id])
	}
	s.order = nil
	s.pending = make(map[string]Change)
	return res
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for _, c := range s.take() {
			select {
			case s.out <- c:
			case <-s.done:
				return
			}
		}
	}
}

func (s *subscriber) close() {
	s.stop.Do(func() { close(s.done) })
}
