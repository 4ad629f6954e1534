package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.Mutex
	sugar *zap.SugaredLogger
)

// GetLogger 返回全局SugaredLogger，首次调用时初始化
func GetLogger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		l, _ := zap.NewProduction()
		sugar = l.Sugar()
	}
	return sugar
}

// SetDevelopment 切换为开发模式日志（人类可读输出）
func SetDevelopment() {
	mu.Lock()
	defer mu.Unlock()
	l, _ := zap.NewDevelopment()
	sugar = l.Sugar()
}

// Sync 刷新缓冲的日志条目，进程退出前调用
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		sugar.Sync()
	}
}
