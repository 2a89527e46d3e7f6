package config

import (
	"context"
	"fmt"
	"runtime"
)

func init() {
	if BoolValue("DBPROBE_DEBUG") {
		ctx := SetContextCorrelationId(context.Background(), "init")
		LogDebug(ctx, fmt.Sprintf("dbprobe config.init(): arch: %v", runtime.GOOS))
		LogDebug(ctx, "dbprobe config initialized with environment variable defaults")
	}
}
