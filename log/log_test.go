package log

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestFormatEvent(t *testing.T) {
	tm := time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC)
	d, err := FormatEvent("accept", tm)
	assert.NoError(t, err)
	assert.Equal(t, "--- accept 2026-10-14T08:30:00.000Z\n", string(d))

	d, err = FormatEvent("close", tm, "peer", "127.0.0.1:5000", "records", 3)
	assert.NoError(t, err)
	s := string(d)
	assert.True(t, strings.HasPrefix(s, "--- close 2026-10-14T08:30:00.000Z\n"))
	assert.True(t, strings.Contains(s, "peer"))
	assert.True(t, strings.Contains(s, "records"))
	assert.True(t, strings.HasSuffix(s, "\n"))
}

func TestFormatEventOddArgs(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover())
	}()
	FormatEvent("bad", time.Now(), "key")
}

func TestLogToFiles(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var seen []string
	err := Init(&Config{
		Dir: dir,
		OnLog: func(s string) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		},
	})
	assert.NoError(t, err)
	Logf("hello %s\n", "log")
	Verbose = false
	Verbosef("not logged\n")
	Event("test", "n", 1)
	Close()

	assert.Equal(t, []string{"hello log\n"}, seen)

	logs, err := filepath.Glob(filepath.Join(dir, "log", "*.txt"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(logs))
	d, err := os.ReadFile(logs[0])
	assert.NoError(t, err)
	assert.Equal(t, "hello log\n", string(d))

	events, err := filepath.Glob(filepath.Join(dir, "events", "*.txt"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(events))
	d, err = os.ReadFile(events[0])
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(d), "--- test "))

	// after Close we only print
	Logf("after close\n")
	IfErrf(nil)
}

func TestShipper(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, r.Header.Get("X-Api-Key")+":"+string(d))
		mu.Unlock()
	}))
	defer srv.Close()

	s := NewShipper(srv.URL+"/api/v1/log", "secret")
	s.Ship("line 1\n")
	s.Ship("line 2\n")
	s.Stop()

	assert.Equal(t, []string{"secret:line 1\n", "secret:line 2\n"}, got)
	assert.Equal(t, 0, s.nFailed)
}

func TestShipperThrottles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewShipper(srv.URL, "")
	s.Ship("a\n")
	s.Ship("b\n")
	s.Stop()
	// first fails, second is skipped due to throttling
	assert.Equal(t, 2, s.nFailed)
	assert.True(t, s.throttled() > 0)
}
