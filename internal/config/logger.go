package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = newLogger(os.Stdout)

// lineFormatter renders entries as
// "2006/01/02 15:04:05 (dbprobe) INFO +1.0s [cid] message".
type lineFormatter struct{}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s (dbprobe) %s +%v [%v] %s\n",
		entry.Time.UTC().Format("2006/01/02 15:04:05"),
		severity(entry.Level),
		entry.Data["since"],
		entry.Data["cid"],
		entry.Message)
	return b.Bytes(), nil
}

func severity(level logrus.Level) string {
	if level == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(level.String())
}

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&lineFormatter{})
	l.SetLevel(logrus.DebugLevel) // debug gating is per context
	return l
}

// SetLogOutput redirects all log lines, returning the previous writer.
func SetLogOutput(w io.Writer) io.Writer {
	prev := logger.Out
	logger.SetOutput(w)
	return prev
}

// Public methods
func LogInfo(ctx context.Context, msg string) {
	writeToLog(ctx, logrus.InfoLevel, msg)
}

func LogWarn(ctx context.Context, msg string) {
	writeToLog(ctx, logrus.WarnLevel, msg)
}

func LogError(ctx context.Context, msg string) {
	writeToLog(ctx, logrus.ErrorLevel, msg)
}

func LogDebug(ctx context.Context, msg string) {
	if GetContextDebug(ctx) {
		writeToLog(ctx, logrus.DebugLevel, msg)
	}
}

// Private methods
func writeToLog(ctx context.Context, level logrus.Level, msg string) {

	logger.WithFields(logrus.Fields{
		"cid":   GetContextCorrelationId(ctx),
		"since": sinceCreated(ctx),
	}).Log(level, msg)

	// Additionally collect if enabled
	if IsLogCollectionEnabled(ctx) {
		createdTime := time.Unix(GetContextTimeCreated(ctx), 0)
		elapsedMs := time.Since(createdTime).Seconds() * 1000

		appendCollectedLog(ctx, CollectedLog{
			Timestamp: time.Now().UTC(),
			Severity:  severity(level),
			Message:   msg,
			CID:       GetContextCorrelationId(ctx),
			ElapsedMs: elapsedMs,
		})
	}
}

func sinceCreated(ctx context.Context) string {

	createdTime := time.Unix(GetContextTimeCreated(ctx), 0)
	t := time.Since(createdTime).Seconds()

	return fmt.Sprintf("%.1fs", t)
}
