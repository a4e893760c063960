package xgo

import (
	"runtime/debug"

	"github.com/go-kratos/kratos/v2/log"
)

// RecoverFromError 在 defer 中使用，记录 panic 堆栈后回调 cb
func RecoverFromError(cb func(e any)) {
	if e := recover(); e != nil {
		log.Errorf("Recover => %v\n%s\n", e, debug.Stack())
		if cb != nil {
			cb(e)
		}
	}
}

// Go 启动带 panic 保护的协程
func Go(fn func(), onPanic func(e any)) {
	go func() {
		defer RecoverFromError(onPanic)
		fn()
	}()
}
