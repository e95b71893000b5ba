package runner

import (
	"bytes"
	"sync"

	"github.com/go-kit/log"
	"github.com/sre-norns/logshare-verify/pkg/prob"
)

const LogRelType = "log"

// RunLog records everything logged during a single run, so it can be shipped
// as an artifact, and forwards each record to the process logger.
type RunLog struct {
	mu      sync.Mutex
	content bytes.Buffer

	capture log.Logger
	next    log.Logger
}

func NewRunLog(next log.Logger) *RunLog {
	if next == nil {
		next = log.NewNopLogger()
	}

	l := &RunLog{next: next}
	l.capture = log.NewLogfmtLogger(&l.content)
	return l
}

func (l *RunLog) Log(keyvals ...any) error {
	l.mu.Lock()
	err := l.capture.Log(keyvals...)
	l.mu.Unlock()

	if nextErr := l.next.Log(keyvals...); nextErr != nil {
		return nextErr
	}

	return err
}

func (l *RunLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.content.String()
}

func (l *RunLog) ToArtifact() prob.Artifact {
	return prob.Artifact{
		Rel:      LogRelType,
		MimeType: "text/plain",
		Content:  []byte(l.String()),
	}
}

func (l *RunLog) Package() []prob.Artifact {
	return []prob.Artifact{l.ToArtifact()}
}
