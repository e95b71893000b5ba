package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sre-norns/logshare-verify/pkg/prob"
)

func printArtifacts(w io.Writer, artifacts []prob.Artifact) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Artifact", "Type", "Path", "Bytes"})

	for i, artifact := range artifacts {
		path := artifact.Path
		if path == "" {
			path = "-"
		}
		t.AppendRow(table.Row{i + 1, artifact.Rel, artifact.MimeType, path, len(artifact.Content)})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}
