package whatsapp

import (
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

// moduleLogger routes whatsmeow's log output through pkg/logger.
type moduleLogger struct {
	module string
}

var _ waLog.Logger = moduleLogger{}

func newLogger(module string) waLog.Logger {
	return moduleLogger{module: module}
}

func (l moduleLogger) Errorf(msg string, args ...any) {
	logger.Errorf("[%s] "+msg, append([]any{l.module}, args...)...)
}

func (l moduleLogger) Warnf(msg string, args ...any) {
	logger.Warnf("[%s] "+msg, append([]any{l.module}, args...)...)
}

func (l moduleLogger) Infof(msg string, args ...any) {
	logger.Infof("[%s] "+msg, append([]any{l.module}, args...)...)
}

func (l moduleLogger) Debugf(msg string, args ...any) {
	logger.Debugf("[%s] "+msg, append([]any{l.module}, args...)...)
}

func (l moduleLogger) Sub(module string) waLog.Logger {
	return moduleLogger{module: l.module + "/" + module}
}
