package bridge

import (
	"github.com/lumelink/lumelink/log"
)

// Stage of a bridge operation, reported through the progress sink.
type Stage string

const (
	// StageSubmitted: the source ledger accepted the payment.
	StageSubmitted = Stage("submitted")
	// StageWaitingConfirmation: scanning the destination chain for the
	// matching event.
	StageWaitingConfirmation = Stage("waiting for confirmation")
)

// ProgressSink receives stage notifications. It's a notification channel,
// not a control mechanism: implementations are invoked synchronously on the
// orchestrating goroutine and must return promptly.
type ProgressSink interface {
	Notify(stage Stage)
}

// NopProgress discards notifications.
type NopProgress struct{}

func (NopProgress) Notify(Stage) {}

// LogProgress writes notifications to the log.
type LogProgress struct {
	Log *log.Logger
}

func (p LogProgress) Notify(stage Stage) {
	p.Log.Infof("bridge progress: %s", stage)
}
