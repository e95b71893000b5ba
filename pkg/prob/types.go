package prob

import (
	"time"

	"github.com/sre-norns/wyrd/pkg/manifest"
)

type Kind = manifest.Kind

// RunStatus represents the outcome of a scenario run
type RunStatus string

const (
	RunNotFinished      RunStatus = ""
	RunFinishedSuccess  RunStatus = "success"
	RunFinishedFailed   RunStatus = "failed"
	RunFinishedError    RunStatus = "errored"
	RunFinishedCanceled RunStatus = "canceled"
	RunFinishedTimeout  RunStatus = "timeout"
)

// Manifest describes a single runnable scenario
type Manifest struct {
	// Name of the scenario, used to label logs and artifacts
	Name string

	// Kind identifies the prober that runs this scenario
	Kind Kind

	// Timeout bounds the whole run. Zero means no limit beyond the caller's context.
	Timeout time.Duration

	// Kind-specific scenario description
	Spec any
}

type Artifact struct {
	// Relation type: log / metrics / har / screenshot name. Determines how content is consumed
	Rel string `json:"rel,omitempty"`

	// MimeType of the content
	MimeType string `json:"mimeType,omitempty"`

	// Path the artifact was written to, if it was persisted on disk
	Path string `json:"path,omitempty"`

	// Blob content of the artifact
	Content []byte `json:"content,omitempty"`
}
