package model

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const slowExecutionThreshold = 100 * time.Millisecond

// LogOnSlowExecutionWithParams logs the given fields when the deferred call
// runs later than the slow execution threshold after startTime.
func LogOnSlowExecutionWithParams(startTime time.Time, params *log.Fields) {
	timeTaken := time.Since(startTime)
	if timeTaken < slowExecutionThreshold {
		return
	}

	logFields := log.Fields{"time_taken_in_ms": timeTaken.Milliseconds()}
	if params != nil {
		for k, v := range *params {
			logFields[k] = v
		}
	}
	log.WithFields(logFields).Info("Slow execution.")
}
