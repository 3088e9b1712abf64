package logger

import (
	"log"
	"strings"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// Initialize logging flags (called once from main)
func Init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

// SetLevel enables debug output for "debug"; any other value keeps info and above.
func SetLevel(level string) {
	debugEnabled.Store(strings.EqualFold(level, "debug"))
}

func DebugEnabled() bool {
	return debugEnabled.Load()
}

func Infof(format string, v ...any) {
	log.Printf("[INFO] "+format, v...)
}

func Warnf(format string, v ...any) {
	log.Printf("[WARN] "+format, v...)
}

func Errorf(format string, v ...any) {
	log.Printf("[ERROR] "+format, v...)
}

func Debugf(format string, v ...any) {
	if !debugEnabled.Load() {
		return
	}
	log.Printf("[DEBUG] "+format, v...)
}

func Fatalf(format string, v ...any) {
	log.Fatalf("[FATAL] "+format, v...)
}
