package logging

import (
	"sort"
	"sync"
)

// LoggerManager управляет логгерами разных компонентов
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) *Logger {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай race condition
	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger := newLogger(component)
	lm.loggers[component] = logger
	return logger
}

// rebind пересоздаёт логгеры компонентов после Init, ссылки у вызывающих остаются валидными
func (lm *LoggerManager) rebind() {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for component, logger := range lm.loggers {
		*logger = *newLogger(component)
	}
}

// ListComponents возвращает список всех зарегистрированных компонентов
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

// SetLogLevel устанавливает минимальный уровень для компонента
func (lm *LoggerManager) SetLogLevel(component string, level LogLevel) {
	lm.GetLogger(component).minLevel = level
}

// GetComponentLogger удобная обёртка над менеджером
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().GetLogger(component)
}

func GetLoaderLogger() *Logger {
	return GetComponentLogger("loader")
}

func GetWorldLogger() *Logger {
	return GetComponentLogger("world")
}

func GetNavLogger() *Logger {
	return GetComponentLogger("nav")
}

func GetTerrainLogger() *Logger {
	return GetComponentLogger("terrain")
}
