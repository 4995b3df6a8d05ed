package worker

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var workerDebugEnabled = strings.EqualFold(os.Getenv("BIZDESK_WORKER_DEBUG"), "1")

func debugLog(format string, args ...interface{}) {
	if workerDebugEnabled {
		slog.Debug(fmt.Sprintf(format, args...), "component", "worker")
	}
}
