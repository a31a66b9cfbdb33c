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
	mu            sync.Mutex
	showDateTime  bool
	useColour     = true
	defaultLogger *Logger
	logFile       *os.File
)

// DefaultLogFile is where SetLogOutput('f') and SetLogOutput('b') write.
var DefaultLogFile = filepath.Join(os.TempDir(), "matchpredict.log")

type LogLevel int

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
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

type Logger struct {
	infoLogger  *log.Logger
	errorLogger *log.Logger
	level       LogLevel
}

func init() {
	defaultLogger = NewLogger(INFO)
}

func flags() int {
	if showDateTime {
		return log.Ldate | log.Ltime
	}
	return 0
}

func NewLogger(level LogLevel) *Logger {
	return &Logger{
		infoLogger:  log.New(os.Stdout, "", flags()),
		errorLogger: log.New(os.Stderr, "", flags()),
		level:       level,
	}
}

func SetShowDateTime(value bool) {
	mu.Lock()
	defer mu.Unlock()
	showDateTime = value
	defaultLogger.infoLogger.SetFlags(flags())
	defaultLogger.errorLogger.SetFlags(flags())
}

// SetLevel sets the minimum level written by the package-level functions.
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.level = level
}

// ParseLevel maps a config string such as "debug" or "warn" onto a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "inform":
		return INFORM, nil
	case "highlight":
		return HIGHLIGHT, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// SetOutput sends every level to w. Colour codes are dropped for non-terminal writers.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeLogFile()
	useColour = w == os.Stdout || w == os.Stderr
	defaultLogger.infoLogger = log.New(w, "", flags())
	defaultLogger.errorLogger = log.New(w, "", flags())
}

// SetMCPMode routes all output to stderr so that stdout carries nothing but JSON-RPC.
func SetMCPMode(enabled bool) {
	if enabled {
		SetOutput(os.Stderr)
		return
	}
	SetLogOutput('c')
}

// SetLogOutput sets the output destination for logs
// 'c' for console, 'f' for file, 'b' for both
func SetLogOutput(outputType rune) error {
	mu.Lock()
	defer mu.Unlock()
	closeLogFile()

	var infoWriter, errorWriter io.Writer
	switch outputType {
	case 'c':
		infoWriter, errorWriter = os.Stdout, os.Stderr
		useColour = true
	case 'f', 'b':
		f, err := os.OpenFile(DefaultLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		if outputType == 'f' {
			infoWriter, errorWriter = f, f
			useColour = false
		} else {
			infoWriter = io.MultiWriter(os.Stdout, f)
			errorWriter = io.MultiWriter(os.Stderr, f)
			useColour = false
		}
	default:
		return fmt.Errorf("invalid log output type: %c", outputType)
	}

	defaultLogger.infoLogger = log.New(infoWriter, "", flags())
	defaultLogger.errorLogger = log.New(errorWriter, "", flags())
	return nil
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func (l *Logger) log(level LogLevel, format string, v ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}
	file = filepath.Base(file)

	msg := format
	var jsonObjects []string
	if len(v) > 0 {
		var primitives []string
		primitives, jsonObjects = processArgs(v...)
		if len(primitives) > 0 {
			msg = format + " " + strings.Join(primitives, " ")
		}
	}

	colourCode, reset := level.colour(), colorReset
	if !useColour {
		colourCode, reset = "", ""
	}

	out := l.infoLogger
	if level >= ERROR {
		out = l.errorLogger
	}
	out.Printf("[%s] %s:%d: %s%s%s", level, file, line, colourCode, msg, reset)
	for _, obj := range jsonObjects {
		out.Printf("[%s] %s:%d: %s%s%s", level, file, line, colourCode, obj, reset)
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

// processArgs processes arguments, converting non-primitives to JSON
// Returns a slice of string representations for primitive types and a slice of JSON strings for complex types
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

// isPrimitive checks if a value is a primitive type
func isPrimitive(v any) bool {
	if v == nil {
		return true
	}

	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, error, fmt.Stringer:
		return true
	default:
		return false
	}
}

// Convenience methods using the default logger
func Debug(format string, v ...any) {
	defaultLogger.log(DEBUG, format, v...)
}

func Info(format string, v ...any) {
	defaultLogger.log(INFO, format, v...)
}

func Inform(format string, v ...any) {
	defaultLogger.log(INFORM, format, v...)
}

func Highlight(format string, v ...any) {
	defaultLogger.log(HIGHLIGHT, format, v...)
}

func Warn(format string, v ...any) {
	defaultLogger.log(WARN, format, v...)
}

func Error(format string, v ...any) {
	defaultLogger.log(ERROR, format, v...)
}

func Fatal(format string, v ...any) {
	defaultLogger.log(FATAL, format, v...)
	os.Exit(1)
}
