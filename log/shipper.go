package log

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carlmjohnson/requests"
)

const (
	// how long to wait before we resume sending logs to the server
	// after a failure. doesn't affect logging to files
	throttleTimeout = time.Second * 15

	mimePlainText = "text/plain"
)

// Shipper sends log lines to a remote collector in the background.
// Use Ship as Config.OnLog.
type Shipper struct {
	// URL is where log lines are POSTed, e.g. http://logs.local/api/v1/log
	URL    string
	ApiKey string

	ch            chan []byte
	mu            sync.Mutex
	throttleUntil time.Time
	wg            sync.WaitGroup
	// number of lines that couldn't be sent, for tests
	nFailed int
}

// NewShipper starts a background worker sending lines to url
func NewShipper(url string, apiKey string) *Shipper {
	s := &Shipper{
		URL:    url,
		ApiKey: apiKey,
		ch:     make(chan []byte, 1000),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// must not call Logf(), it would loop back into Ship()
func shipperLogf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Print(s)
}

func (s *Shipper) throttled() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Until(s.throttleUntil)
}

func (s *Shipper) post(d []byte) {
	r := requests.
		URL(s.URL).
		BodyBytes(d).
		ContentType(mimePlainText)
	if s.ApiKey != "" {
		r = r.Header("X-Api-Key", s.ApiKey)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	err := r.Fetch(ctx)
	cancel()
	if err != nil {
		shipperLogf("log shipper: POST %s failed: %v, will throttle for %s\n", s.URL, err, throttleTimeout)
		s.mu.Lock()
		s.throttleUntil = time.Now().Add(throttleTimeout)
		s.nFailed++
		s.mu.Unlock()
	}
}

func (s *Shipper) worker() {
	defer s.wg.Done()
	for d := range s.ch {
		if s.throttled() > 0 {
			s.mu.Lock()
			s.nFailed++
			s.mu.Unlock()
			continue
		}
		s.post(d)
	}
}

// Ship queues s for sending. It never blocks: when the queue is full
// the line is dropped
func (s *Shipper) Ship(line string) {
	select {
	case s.ch <- []byte(line):
	default:
		shipperLogf("log shipper: queue full, dropping line\n")
	}
}

// Stop sends queued lines and stops the worker. Ship must not be
// called after Stop
func (s *Shipper) Stop() {
	close(s.ch)
	s.wg.Wait()
}
