package download

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent is a user-facing notice about a download.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Notifier receives progress events. A nil Notifier drops them.
type Notifier func(ProgressEvent)

// Notify sends an event if n is set.
func (n Notifier) Notify(level ProgressLevel, message string) {
	if n != nil {
		n(ProgressEvent{Message: message, Level: level})
	}
}
