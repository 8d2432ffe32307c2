package logger

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// maxCallerDepth bounds how far up the stack the hook looks for a caller
const maxCallerDepth = 32

// internalPrefixes are the function-name prefixes that never count as the
// caller: logrus itself and this package's wrappers.
var internalPrefixes = []string{
	reflect.TypeOf(logrus.Entry{}).PkgPath() + ".",
	reflect.TypeOf(callerHook{}).PkgPath() + ".",
}

// callerHook replaces the caller logrus records with the first stack frame
// outside the logging packages, so wrapped calls report the real call site.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	if frame, ok := externalCaller(2); ok {
		entry.Caller = &frame
	}
	return nil
}

// externalCaller walks the stack above skip and returns the first frame that
// is not internal.
func externalCaller(skip int) (runtime.Frame, bool) {
	pcs := make([]uintptr, maxCallerDepth)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(skip+1, pcs)])
	for frame, more := frames.Next(); frame.PC != 0; frame, more = frames.Next() {
		if !isInternalFrame(frame.Function) {
			return frame, true
		}
		if !more {
			break
		}
	}
	return runtime.Frame{}, false
}

func isInternalFrame(function string) bool {
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}
	return false
}
