package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Компоненты хранилища, у каждого свой логгер и свой файл
const (
	ComponentWorld    = "world"
	ComponentIngest   = "ingest"
	ComponentMesher   = "mesher"
	ComponentDebugAPI = "debugapi"
)

// LoggerManager выдаёт логгеры компонентов и хранит пороги консоли,
// заданные отдельно для компонентов
type LoggerManager struct {
	mu        sync.RWMutex
	loggers   map[string]*Logger
	overrides map[string]LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:   make(map[string]*Logger),
		overrides: make(map[string]LogLevel),
	}
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	if level, ok := lm.overrides[component]; ok {
		logger.minConsoleLevel = level
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер компонента; если файл открыть не удалось,
// логгер пишет только в консоль
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	level := currentOptions().ConsoleLevel
	lm.mu.RLock()
	if override, ok := lm.overrides[component]; ok {
		level = override
	}
	lm.mu.RUnlock()

	return &Logger{
		component:       component,
		consoleLogger:   defaultLogger.consoleLogger,
		minConsoleLevel: level,
		minFileLevel:    ERROR + 1,
	}
}

// SetConsoleLevel задаёт порог консоли для компонента. Действует и на
// уже созданный логгер, и на тот, что будет создан позже.
func (lm *LoggerManager) SetConsoleLevel(component string, level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.overrides[component] = level
	if logger, ok := lm.loggers[component]; ok {
		logger.minConsoleLevel = level
	}
}

// ApplyLevels разбирает пороги вида {"mesher": "DEBUG"} и применяет их
func (lm *LoggerManager) ApplyLevels(levels map[string]string) error {
	for component, name := range levels {
		level, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("logging.components.%s: %w", component, err)
		}
		lm.SetConsoleLevel(component, level)
	}
	return nil
}

// ListComponents возвращает отсортированный список созданных логгеров
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger    { return GetComponentLogger(ComponentWorld) }
func GetIngestLogger() *Logger   { return GetComponentLogger(ComponentIngest) }
func GetMesherLogger() *Logger   { return GetComponentLogger(ComponentMesher) }
func GetDebugAPILogger() *Logger { return GetComponentLogger(ComponentDebugAPI) }
