package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/crytic/seedfuzz/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the CLI. Each package should
// create its own sub-logger so that log lines can be filtered by module.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any number of writers, each in either structured
// (JSON) or unstructured (console) form, with or without ANSI coloring.
type Logger struct {
	// core holds the writers and level shared between a logger and every sub-logger created from it.
	core *loggerCore

	// fields describes the key-value context added by NewSubLogger.
	fields map[string]any
}

// loggerCore describes the state shared between a root logger and its sub-loggers. Writers added after a sub-logger
// was created are still used by that sub-logger.
type loggerCore struct {
	lock sync.Mutex

	// level describes the log level
	level zerolog.Level

	// structuredWriters describes the writers which receive JSON output.
	structuredWriters []io.Writer

	// unstructuredWriters describes the writers which receive plain console output.
	unstructuredWriters []io.Writer

	// unstructuredColorWriters describes the writers which receive colorized console output.
	unstructuredColorWriters []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level and no writers.
func NewLogger(level zerolog.Level) *Logger {
	return &Logger{
		core:   &loggerCore{level: level},
		fields: map[string]any{},
	}
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{
		core:   l.core,
		fields: fields,
	}
}

// AddWriter will add a writer to the list of channels where log output will be sent. Adding a writer that already
// exists with the same format and coloring is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	l.core.lock.Lock()
	defer l.core.lock.Unlock()

	writers := l.core.writersFor(format, colored)
	for _, w := range *writers {
		if w == writer {
			return
		}
	}
	*writers = append(*writers, writer)
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist,
// this function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	l.core.lock.Lock()
	defer l.core.lock.Unlock()

	writers := l.core.writersFor(format, colored)
	for i, w := range *writers {
		if w == writer {
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			return
		}
	}
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	l.core.lock.Lock()
	defer l.core.lock.Unlock()
	return l.core.level
}

// SetLevel will update the log level of the Logger and all of its sub-loggers
func (l *Logger) SetLevel(level zerolog.Level) {
	l.core.lock.Lock()
	defer l.core.lock.Unlock()
	l.core.level = level
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event to every writer and then panic with the message.
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
	_, msg, err, _ := buildMsgs(args...)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", msg, err))
	}
	panic(msg)
}

// log builds the messages from args and sends one event at the given level to every writer group.
func (l *Logger) log(level zerolog.Level, args ...any) {
	l.core.lock.Lock()
	defer l.core.lock.Unlock()

	// Levels below the configured one are discarded; PanicLevel always passes unless logging is disabled
	if l.core.level == zerolog.Disabled || level < l.core.level {
		return
	}

	colorMsg, plainMsg, err, info := buildMsgs(args...)
	debug := l.core.level <= zerolog.DebugLevel

	if len(l.core.structuredWriters) > 0 {
		logger := zerolog.New(zerolog.MultiLevelWriter(l.core.structuredWriters...)).With().Timestamp().Fields(l.fields).Logger()
		emit(logger.WithLevel(level), err, info, plainMsg, debug)
	}
	if len(l.core.unstructuredWriters) > 0 {
		writers := make([]io.Writer, len(l.core.unstructuredWriters))
		for i, w := range l.core.unstructuredWriters {
			writers[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.core.level, false)
		}
		logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Fields(l.fields).Logger()
		emit(logger.WithLevel(level), err, info, plainMsg, debug)
	}
	if len(l.core.unstructuredColorWriters) > 0 {
		writers := make([]io.Writer, len(l.core.unstructuredColorWriters))
		for i, w := range l.core.unstructuredColorWriters {
			writers[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: !colors.Enabled()}, l.core.level, true)
		}
		logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Fields(l.fields).Logger()
		emit(logger.WithLevel(level), err, info, colorMsg, debug)
	}
}

// writersFor returns the writer list matching a format and coloring. The caller must hold the lock.
func (c *loggerCore) writersFor(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &c.structuredWriters
	}
	if colored {
		return &c.unstructuredColorWriters
	}
	return &c.unstructuredWriters
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
// The error and the StructuredLogInfo can be used to add additional context to log messages
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	consoleOutput := make([]string, 0, len(args))
	plainOutput := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// A color function switches the color context for the following arguments
			colorCtx = t
		case StructuredLogInfo:
			// Only one structured log info can be provided for each log message
			info = t
		case error:
			// Only one error can be provided for each log message
			err = t
		default:
			consoleOutput = append(consoleOutput, colorCtx(t))
			plainOutput = append(plainOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(plainOutput, ""), err, info
}

// emit chains the error, the structured info and the message to an event and sends it. Stack traces are attached
// when the logger runs at debug level or below.
func emit(event *zerolog.Event, err error, info StructuredLogInfo, msg string, debug bool) {
	if err != nil {
		event = event.Err(err)
		if debug {
			event = event.Stack()
		}
	}
	if info != nil {
		event = event.Any("info", info)
	}
	event.Msg(msg)
}

// setupDefaultFormatting will update the console writer's formatting to the seedfuzz standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level, colored bool) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	paint := func(f colors.ColorFunc, s string) string {
		if !colored {
			return s
		}
		return f(s)
	}

	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		switch parsed {
		case zerolog.TraceLevel:
			return paint(colors.CyanBold, zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return paint(colors.BlueBold, zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return paint(colors.GreenBold, colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return paint(colors.YellowBold, zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return paint(colors.RedBold, zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return paint(colors.RedBold, zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return paint(colors.RedBold, zerolog.LevelPanicValue)
		default:
			return levelStr
		}
	}

	// Above debug level the module field is noise on the console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
