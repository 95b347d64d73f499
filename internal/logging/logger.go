package logging

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
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

// ParseLevel разбирает имя уровня без учёта регистра.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
}

var levelColors = map[LogLevel]func(a ...interface{}) string{
	TRACE: color.New(color.FgHiBlack).SprintFunc(),
	DEBUG: color.New(color.FgCyan).SprintFunc(),
	INFO:  color.New(color.FgGreen).SprintFunc(),
	WARN:  color.New(color.FgYellow).SprintFunc(),
	ERROR: color.New(color.FgRed, color.Bold).SprintFunc(),
}

// Options задают вывод для логгеров, создаваемых после Configure.
type Options struct {
	// Dir - каталог файлов логов. Пустая строка отключает запись в файл.
	Dir          string
	ConsoleLevel LogLevel
	FileLevel    LogLevel
	// Console - вывод консоли, по умолчанию os.Stdout.
	Console io.Writer
}

var (
	optionsMu sync.RWMutex
	options   = Options{ConsoleLevel: INFO, FileLevel: DEBUG}
)

// Configure задаёт параметры логирования и применяет уровни к уже созданным логгерам.
func Configure(o Options) {
	optionsMu.Lock()
	options = o
	optionsMu.Unlock()

	componentsMu.RLock()
	defer componentsMu.RUnlock()
	for _, l := range components {
		l.SetLevels(o.ConsoleLevel, o.FileLevel)
	}
}

func currentOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}

// Logger - логгер компонента: консоль и необязательный файл logs/<component>_<time>.log
type Logger struct {
	mu              sync.RWMutex
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// NewLogger создает логгер компонента
func NewLogger(component string) (*Logger, error) {
	o := currentOptions()
	console := o.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		component:       component,
		consoleLogger:   log.New(console, "", log.LstdFlags),
		minConsoleLevel: o.ConsoleLevel,
		minFileLevel:    o.FileLevel,
	}

	if o.Dir == "" {
		return l, nil
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", o.Dir, err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(o.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}
	l.file = file
	l.fileLogger = log.New(file, "", log.LstdFlags)
	return l, nil
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// SetLevels меняет минимальные уровни консоли и файла.
func (l *Logger) SetLevels(consoleLevel, fileLevel LogLevel) {
	l.mu.Lock()
	l.minConsoleLevel = consoleLevel
	l.minFileLevel = fileLevel
	l.mu.Unlock()
}

func (l *Logger) logMessage(level LogLevel, format string, args ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if level < l.minConsoleLevel && (l.fileLogger == nil || level < l.minFileLevel) {
		return
	}
	message := fmt.Sprintf(format, args...)

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Printf("[%s] [%s] %s", level, l.component, message)
	}
	if level >= l.minConsoleLevel {
		l.consoleLogger.Printf("%s [%s] %s", levelColors[level]("["+level.String()+"]"), l.component, message)
	}
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.logMessage(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.logMessage(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.logMessage(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.logMessage(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.logMessage(ERROR, format, args...) }

// ProtocolError логирует ошибку декодирования пакета с hex дампом
func (l *Logger) ProtocolError(connID string, err error, data []byte) {
	l.Error("Protocol error from %s: %v", connID, err)
	if len(data) > 0 {
		l.Debug("Raw data (%d bytes):\n%s", len(data), HexDump(data))
	}
}

// HexDump создает hex дамп данных
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "No data"
	}

	// Ограничиваем размер дампа до 256 байт
	size := len(data)
	if size > 256 {
		size = 256
	}

	return hex.Dump(data[:size])
}

// ===== Логгеры компонентов =====

var (
	componentsMu sync.RWMutex
	components   = make(map[string]*Logger)
)

// componentLogger возвращает логгер компонента, создавая его с текущими Options.
func componentLogger(component string) (*Logger, error) {
	componentsMu.RLock()
	l, ok := components[component]
	componentsMu.RUnlock()
	if ok {
		return l, nil
	}

	componentsMu.Lock()
	defer componentsMu.Unlock()
	if l, ok := components[component]; ok {
		return l, nil
	}
	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания логгера %s: %w", component, err)
	}
	components[component] = l
	return l, nil
}

// Component возвращает логгер компонента. Если файл логов не открылся,
// компонент пишет только в консоль логгера по умолчанию.
func Component(component string) *Logger {
	l, err := componentLogger(component)
	if err != nil {
		o := currentOptions()
		return &Logger{
			component:       component,
			consoleLogger:   getDefault().consoleLogger,
			minConsoleLevel: o.ConsoleLevel,
			minFileLevel:    o.FileLevel,
		}
	}
	return l
}

// CloseAll закрывает файлы логгеров компонентов и забывает их.
func CloseAll() error {
	componentsMu.Lock()
	defer componentsMu.Unlock()

	var errs []error
	for name, l := range components {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", name, err))
		}
	}
	components = make(map[string]*Logger)
	return errors.Join(errs...)
}

func GetNetworkLogger() *Logger { return Component("network") }

func GetWorldLogger() *Logger { return Component("world") }

func GetStorageLogger() *Logger { return Component("storage") }

func GetCacheLogger() *Logger { return Component("cache") }

// ===== Логгер по умолчанию =====

var (
	defaultMu     sync.RWMutex
	defaultLogger = &Logger{
		component:       "main",
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    ERROR,
	}
)

// InitDefaultLogger делает логгер компонента логгером по умолчанию
func InitDefaultLogger(component string) error {
	l, err := componentLogger(component)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает логгеры всех компонентов
func CloseDefaultLogger() {
	_ = CloseAll()
}

func getDefault() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует через логгер по умолчанию
func Trace(format string, args ...interface{}) { getDefault().Trace(format, args...) }

// Debug логирует через логгер по умолчанию
func Debug(format string, args ...interface{}) { getDefault().Debug(format, args...) }

// Info логирует через логгер по умолчанию
func Info(format string, args ...interface{}) { getDefault().Info(format, args...) }

// Warn логирует через логгер по умолчанию
func Warn(format string, args ...interface{}) { getDefault().Warn(format, args...) }

// Error логирует через логгер по умолчанию
func Error(format string, args ...interface{}) { getDefault().Error(format, args...) }
