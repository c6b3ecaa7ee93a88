package future

import (
	"runtime/debug"

	"github.com/amp-labs/actionstate/logger"
	"github.com/amp-labs/actionstate/utils"
)

// invokeCallback runs a user callback on its own goroutine so a slow or
// panicking callback never blocks promise fulfillment. Panics are logged.
func invokeCallback[T any](kind string, callback func(T), value T) {
	if callback == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(kind, utils.GetPanicRecoveryError(r, debug.Stack()))
			}
		}()

		callback(value)
	}()
}

func logPanic(kind string, err error) {
	if err != nil {
		logger.Get().Error("panic encountered in future."+kind+" callback", "error", err)
	}
}
