package log

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/ringlog/filerotate"

	"github.com/toon-format/toon-go"
)

var (
	mu         sync.Mutex
	logFile    *filerotate.File
	eventsFile *filerotate.File
	onLog      func(s string)

	// if true, Verbosef() will log messages
	Verbose bool
)

type Config struct {
	// directory where log files are stored, in "log" and "events"
	// subdirectories. If empty, we only log to stdout
	Dir string
	// called for every Logf() call
	// allows sending logs to other places (e.g. Shipper)
	OnLog func(s string)
}

// Init initializes the logging system
func Init(config *Config) error {
	mu.Lock()
	defer mu.Unlock()

	onLog = config.OnLog
	if config.Dir == "" {
		return nil
	}
	var err error
	logFile, err = filerotate.NewDaily(filepath.Join(config.Dir, "log"), "", nil)
	if err != nil {
		return err
	}
	// events are rare, this only creates a file
	eventsFile, err = filerotate.NewDaily(filepath.Join(config.Dir, "events"), "", nil)
	return err
}

func closeFile(f **filerotate.File) {
	if *f == nil {
		return
	}
	(*f).Sync()
	(*f).Close()
	*f = nil
}

// Close closes log files. Logf() after Close() only prints to stdout
func Close() {
	mu.Lock()
	defer mu.Unlock()

	closeFile(&logFile)
	closeFile(&eventsFile)
	onLog = nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Print(s)

	mu.Lock()
	f := logFile
	fn := onLog
	mu.Unlock()

	if f != nil {
		f.Write([]byte(s))
	}
	if fn != nil {
		fn(s)
	}
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		s := frame.File + ":" + strconv.Itoa(frame.Line)
		cs = append(cs, s)
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(1)
	Logf("%s\n%s\n", s, cs)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		// shouldn't happen but just in case
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}

func panicIf(cond bool) {
	if cond {
		panic("condition is true")
	}
}

// keyToStr converts simple types to string
// panics if v is of complex type
func keyToStr(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	case int, int64, uint, uint64, bool:
		return fmt.Sprintf("%v", k)
	}
	panic(fmt.Sprintf("keyToStr: key is of type %T", v))
}

// FormatEvent serializes an event as:
// --- <name> <time in RFC3339 with milliseconds>\n
// <toon encoded key/value pairs>\n
func FormatEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	panicIf(n%2 != 0)
	var buf []byte
	buf = append(buf, "--- "...)
	buf = append(buf, name...)
	buf = append(buf, ' ')
	buf = t.UTC().AppendFormat(buf, "2006-01-02T15:04:05.000Z07:00")
	buf = append(buf, '\n')
	if n == 0 {
		return buf, nil
	}
	m := map[string]any{}
	for i := 0; i < n; i += 2 {
		k := keyToStr(vals[i])
		m[k] = vals[i+1]
	}
	d, err := toon.Marshal(m)
	if err != nil {
		return nil, err
	}
	buf = append(buf, d...)
	if len(d) > 0 && d[len(d)-1] != '\n' {
		buf = append(buf, '\n')
	}
	return buf, nil
}

// Event logs an event with key/value pairs to events log file
func Event(name string, vals ...any) {
	mu.Lock()
	f := eventsFile
	mu.Unlock()
	if f == nil {
		return
	}
	d, err := FormatEvent(name, time.Now(), vals...)
	if err != nil {
		Errorf("log.Event: toon.Marshal() failed with '%s'", err)
		return
	}
	f.Write(d)
}

// EventWithDuration logs an event and its duration in microseconds
func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
