package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/recstore/filerotate"
	"github.com/kjk/recstore/siserlogger"

	"github.com/toon-format/toon-go"
)

var (
	mu        sync.Mutex
	logFile   *filerotate.File
	errorsLog *filerotate.File
	eventsLog *siserlogger.File
	onLog     func(s string)

	// if true, Verbosef() will log messages
	Verbose bool

	// where Logf() prints, in addition to log files
	Output io.Writer = os.Stdout
)

type Config struct {
	// directory where log files are stored
	// each log type (regular, errors, events) has its own subdirectory
	Dir string
	// called for every Logf() call
	// allows sending logs to other places (e.g. logtail)
	OnLog func(s string)
}

// Init opens daily rotated log files in config.Dir.
// Without Init logging only goes to Output.
func Init(config *Config) error {
	dir := config.Dir
	lf, err := filerotate.NewDaily(filepath.Join(dir, "log"), "", nil)
	if err != nil {
		return err
	}
	ef, err := filerotate.NewDaily(filepath.Join(dir, "errors"), "", nil)
	if err != nil {
		lf.Close()
		return err
	}
	evf, err := siserlogger.NewDaily(filepath.Join(dir, "events"), "", nil)
	if err != nil {
		lf.Close()
		ef.Close()
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	logFile = lf
	errorsLog = ef
	eventsLog = evf
	onLog = config.OnLog
	return nil
}

func closeLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	if errorsLog != nil {
		errorsLog.Close()
		errorsLog = nil
	}
	eventsLog.Close()
	eventsLog = nil
	onLog = nil
}

// Close closes log files. Logging after Close only goes to Output
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func writeTo(f *filerotate.File, s string) {
	if f != nil {
		_, _ = f.Write([]byte(s))
	}
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	mu.Lock()
	defer mu.Unlock()
	if Output != nil {
		fmt.Fprint(Output, s)
	}
	writeTo(logFile, s)
	if onLog != nil {
		onLog(s)
	}
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
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
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message along with the callstack.
// It also goes to errors log file.
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(2)
	s = fmt.Sprintf("%s\n%s\n", s, cs)
	Logf("%s", s)
	mu.Lock()
	writeTo(errorsLog, s)
	mu.Unlock()
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

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	kind := reflect.TypeOf(v).Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// EventData encodes key/value pairs in toon format
func EventData(vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("odd number of values: %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	m := map[string]any{}
	for i := 0; i < n; i += 2 {
		k := simpleTypeToStr(vals[i])
		m[k] = vals[i+1]
	}
	return toon.Marshal(m)
}

// Event logs an event with key/value pairs to events log
func Event(name string, vals ...any) {
	d, err := EventData(vals...)
	if err != nil {
		Errorf("log.Event('%s'): %s", name, err)
		return
	}
	mu.Lock()
	evl := eventsLog
	mu.Unlock()
	_ = evl.Write(name, d)
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
