package retry

import "strings"

// Class is the failure class that decides between redelivery and
// immediate removal from the queue.
type Class int

const (
	// Recoverable failures are worth another delivery attempt.
	Recoverable Class = iota
	// Terminal failures cannot be fixed by redelivery.
	Terminal
)

func (c Class) String() string {
	if c == Terminal {
		return "terminal"
	}
	return "recoverable"
}

// Patterns that mark a failure as data/state-shaped: redelivering the
// message cannot change the outcome.
var terminalPatterns = []string{
	"not found",
	"no evaluation record",
	"already processed",
	"validation",
	"invalid",
	"malformed",
	"unparseable",
}

// Patterns that mark a failure as transport/availability-shaped.
var recoverablePatterns = []string{
	"network",
	"timeout",
	"timed out",
	"connection",
	"temporar",
	"unavailable",
	"unreachable",
	"reset by peer",
	"too many requests",
}

// Classify maps an error to Recoverable or Terminal by matching its
// message text. Errors matching neither list default to Recoverable:
// the attempt ceiling plus dead-letter routing bounds the cost of
// retrying a genuinely permanent failure.
func Classify(err error) Class {
	if err == nil {
		return Recoverable
	}
	msg := strings.ToLower(err.Error())

	for _, p := range terminalPatterns {
		if strings.Contains(msg, p) {
			return Terminal
		}
	}
	for _, p := range recoverablePatterns {
		if strings.Contains(msg, p) {
			return Recoverable
		}
	}
	return Recoverable
}
