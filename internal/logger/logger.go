package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// ********************************************************
// ********* LOGGING **************************************
// ********************************************************

var (
	defaultLogger *Logger
	logFile       *os.File
	mu            sync.Mutex
)

type LogLevel int

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorYellow  = "\033[33m"
	colorOrange  = "\033[38;5;208m"
)

const (
	DEBUG LogLevel = iota
	INFO
	INFORM
	HIGHLIGHT
	WARN
	ERROR
	FATAL
)

// Logger writes levelled, coloured lines prefixed with the caller's file and line.
// Anything that is not a primitive is appended as indented JSON on its own line
type Logger struct {
	infoLogger   *log.Logger
	errorLogger  *log.Logger
	level        LogLevel
	showDateTime bool
	colour       bool
}

func init() {
	defaultLogger = NewLogger(INFO, os.Stdout, os.Stderr)
}

// NewLogger creates a logger that writes levels below ERROR to out and the rest to errOut
func NewLogger(level LogLevel, out io.Writer, errOut io.Writer) *Logger {
	return &Logger{
		infoLogger:  log.New(out, "", 0),
		errorLogger: log.New(errOut, "", 0),
		level:       level,
		colour:      true,
	}
}

func (l *Logger) flags() int {
	if l.showDateTime {
		return log.Ldate | log.Ltime
	}
	return 0
}

// SetShowDateTime toggles the date/time prefix on the default logger
func SetShowDateTime(value bool) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.showDateTime = value
	defaultLogger.infoLogger.SetFlags(defaultLogger.flags())
	defaultLogger.errorLogger.SetFlags(defaultLogger.flags())
}

// SetLevel sets the minimum level the default logger emits
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.level = level
}

// GetLevel returns the default logger's minimum level
func GetLevel() LogLevel {
	mu.Lock()
	defer mu.Unlock()
	return defaultLogger.level
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "INFORM":
		return INFORM, nil
	case "HIGHLIGHT":
		return HIGHLIGHT, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", name)
	}
}

// SetLogOutput sets the output destination for logs
// 'c' for console, 'f' for file, 'b' for both.
// When logging to file, filename is opened in append mode
func SetLogOutput(outputType rune, filename string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	openFile := func() error {
		if filename == "" {
			return fmt.Errorf("no log file given")
		}
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		return nil
	}

	var out, errOut io.Writer
	switch outputType {
	case 'c':
		out, errOut = os.Stdout, os.Stderr
		defaultLogger.colour = true
	case 'f':
		if err := openFile(); err != nil {
			return err
		}
		out, errOut = logFile, logFile
		defaultLogger.colour = false
	case 'b':
		if err := openFile(); err != nil {
			return err
		}
		out = io.MultiWriter(os.Stdout, logFile)
		errOut = io.MultiWriter(os.Stderr, logFile)
		defaultLogger.colour = true
	default:
		return fmt.Errorf("invalid log output type: %c", outputType)
	}

	defaultLogger.infoLogger = log.New(out, "", defaultLogger.flags())
	defaultLogger.errorLogger = log.New(errOut, "", defaultLogger.flags())
	return nil
}

// SetWriter points the default logger at a single writer, mostly useful in tests
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.infoLogger = log.New(w, "", defaultLogger.flags())
	defaultLogger.errorLogger = log.New(w, "", defaultLogger.flags())
	defaultLogger.colour = false
}

// Close releases any open log file
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, v ...any) {
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(3)
	if !ok {
		file = "unknown"
		line = 0
	}
	file = filepath.Base(file)

	msg := format
	var jsonObjects []string
	if len(v) > 0 {
		primitives, objects := processArgs(v...)
		jsonObjects = objects
		if len(primitives) > 0 {
			msg = format + " " + strings.Join(primitives, " ")
		}
	}

	start, end := "", ""
	if l.colour {
		start, end = level.colour(), colorReset
	}

	target := l.infoLogger
	if level >= ERROR {
		target = l.errorLogger
	}
	target.Printf("[%s] %s:%d: %s%s%s", level.String(), file, line, start, msg, end)
	for _, obj := range jsonObjects {
		target.Printf("[%s] %s:%d: %s%s%s", level.String(), file, line, start, obj, end)
	}
}

func (l LogLevel) colour() string {
	switch l {
	case DEBUG:
		return colorBlue
	case INFO:
		return colorGreen
	case INFORM:
		return colorMagenta
	case HIGHLIGHT:
		return colorCyan
	case WARN:
		return colorYellow
	case ERROR:
		return colorOrange
	case FATAL:
		return colorRed
	default:
		return colorReset
	}
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case INFORM:
		return "INFORM"
	case HIGHLIGHT:
		return "HIGHLIGHT"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// processArgs splits arguments into printable primitives and JSON renderings of everything else
func processArgs(args ...any) ([]string, []string) {
	var primitives []string
	var jsonObjects []string

	for _, arg := range args {
		if isPrimitive(arg) {
			primitives = append(primitives, formatPrimitive(arg))
			continue
		}
		jsonBytes, err := json.MarshalIndent(arg, "", "  ")
		if err != nil {
			primitives = append(primitives, fmt.Sprintf("%v", arg))
			continue
		}
		primitives = append(primitives, fmt.Sprintf("[Object of type %s]", reflect.TypeOf(arg)))
		jsonObjects = append(jsonObjects, string(jsonBytes))
	}
	return primitives, jsonObjects
}

func formatPrimitive(arg any) string {
	switch v := arg.(type) {
	case float32:
		return fmt.Sprintf("%.2f", v)
	case float64:
		return fmt.Sprintf("%.2f", v)
	case string:
		return v
	case error:
		return v.Error()
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isPrimitive(v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, error:
		return true
	default:
		return false
	}
}

func logDefault(level LogLevel, format string, v ...any) {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	l.log(level, format, v...)
}

// Convenience methods using the default logger
func Debug(format string, v ...any) {
	logDefault(DEBUG, format, v...)
}

func Info(format string, v ...any) {
	logDefault(INFO, format, v...)
}

func Inform(format string, v ...any) {
	logDefault(INFORM, format, v...)
}

func Highlight(format string, v ...any) {
	logDefault(HIGHLIGHT, format, v...)
}

func Warn(format string, v ...any) {
	logDefault(WARN, format, v...)
}

func Error(format string, v ...any) {
	logDefault(ERROR, format, v...)
}

func Fatal(format string, v ...any) {
	logDefault(FATAL, format, v...)
	os.Exit(1)
}
