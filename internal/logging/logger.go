package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации, по умолчанию INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case TRACE, DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options настройки системы логирования
type Options struct {
	Level      string // trace|debug|info|warn|error
	File       string // путь к файлу, пусто — только консоль
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Console    bool
}

// Logger логгер компонента поверх zap
type Logger struct {
	component string
	sugar     *zap.SugaredLogger
	minLevel  LogLevel
}

var (
	mu           sync.RWMutex
	base         = zap.NewNop()
	globalLevel  = INFO
	rotateWriter *lumberjack.Logger
	defaultLog   = &Logger{component: "", sugar: zap.NewNop().Sugar(), minLevel: INFO}
)

// Init инициализирует систему логирования: консоль + файл с ротацией
func Init(opts Options) error {
	lvl := ParseLevel(opts.Level)
	var cores []zapcore.Core

	if opts.Console {
		consoleEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "component",
			MessageKey:       "msg",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:      zapcore.CapitalColorLevelEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), lvl.zapLevel()))
	}

	var writer *lumberjack.Logger
	if opts.File != "" {
		writer = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
			LocalTime:  true,
		}
		fileEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:     "time",
			LevelKey:    "level",
			NameKey:     "component",
			MessageKey:  "msg",
			EncodeTime:  zapcore.ISO8601TimeEncoder,
			EncodeLevel: zapcore.CapitalLevelEncoder,
			EncodeName:  zapcore.FullNameEncoder,
		})
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(writer), lvl.zapLevel()))
	}

	if len(cores) == 0 {
		return fmt.Errorf("не настроен ни один вывод логов")
	}

	mu.Lock()
	base = zap.New(zapcore.NewTee(cores...))
	globalLevel = lvl
	rotateWriter = writer
	defaultLog = &Logger{sugar: base.Sugar(), minLevel: lvl}
	mu.Unlock()

	GetLoggerManager().rebind()
	return nil
}

var testsOnce sync.Once

// InitForTests включает вывод в консоль на уровне DEBUG (один раз на процесс)
func InitForTests() {
	testsOnce.Do(func() {
		_ = Init(Options{Level: "debug", Console: true})
	})
}

// Close сбрасывает буферы и закрывает файл логов
func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	if rotateWriter != nil {
		_ = rotateWriter.Close()
		rotateWriter = nil
	}
}

func newLogger(component string) *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &Logger{
		component: component,
		sugar:     base.Named(component).Sugar(),
		minLevel:  globalLevel,
	}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.minLevel {
		return
	}
	switch level {
	case TRACE:
		l.sugar.Debugf("[trace] "+format, args...)
	case DEBUG:
		l.sugar.Debugf(format, args...)
	case INFO:
		l.sugar.Infof(format, args...)
	case WARN:
		l.sugar.Warnf(format, args...)
	case ERROR:
		l.sugar.Errorf(format, args...)
	}
}

// Enabled сообщает, будет ли записан уровень (для дорогих сообщений)
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.minLevel
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLog
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().log(ERROR, format, args...) }
