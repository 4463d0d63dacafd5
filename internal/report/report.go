// Package report renders a drift.Report for machines and humans and maps
// outcomes to process exit codes.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/starford/nightsync/internal/drift"
)

// Exit codes.
const (
	ExitClean       = 0
	ExitDrift       = 1
	ExitOperational = 2
)

// ExitCode maps a run outcome to the process exit status.
func ExitCode(r *drift.Report, err error) int {
	switch {
	case err != nil:
		return ExitOperational
	case r != nil && r.DriftDetected:
		return ExitDrift
	default:
		return ExitClean
	}
}

// Marshal encodes r with sorted keys; pretty indents by two spaces. The
// payload carries no trailing newline.
func Marshal(r *drift.Report, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("report: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Meta carries the header fields of the human report.
type Meta struct {
	MemoryFile   string
	EvidenceRoot string
}

// Human writes the sequential text rendering of r.
func Human(w io.Writer, r *drift.Report, meta Meta) error {
	var b strings.Builder
	st := r.Stats

	specs := "(all)"
	if len(st.SpecFilter) > 0 {
		specs = strings.Join(st.SpecFilter, ", ")
	}
	b.WriteString("Nightly Sync Drift Detector\n")
	fmt.Fprintf(&b, "Memory file: %s\n", meta.MemoryFile)
	fmt.Fprintf(&b, "Evidence root: %s\n", meta.EvidenceRoot)
	fmt.Fprintf(&b, "Specs: %s\n", specs)
	fmt.Fprintf(&b, "Memory entries scanned: %d | Evidence files scanned: %d\n",
		st.MemoryEntriesScanned, st.EvidenceFilesScanned)
	fmt.Fprintf(&b, "Referenced paths: %d (entries: %d)\n\n",
		st.MemoryReferencePaths, st.MemoryReferenceCount)

	if len(r.MissingMemory) > 0 {
		fmt.Fprintf(&b, "Missing memory entries (%d):\n", len(r.MissingMemory))
		for _, m := range r.MissingMemory {
			fmt.Fprintf(&b, "  - %s [%s]\n", m.Path, m.Spec)
		}
	} else {
		b.WriteString("Missing memory entries: none.\n")
	}
	b.WriteString("\n")

	if len(r.MissingEvidence) > 0 {
		fmt.Fprintf(&b, "Missing evidence files (%d):\n", len(r.MissingEvidence))
		for _, m := range r.MissingEvidence {
			fmt.Fprintf(&b, "  - %s [%s] referenced by %s\n", m.Path, m.Spec, citedBy(m))
		}
	} else {
		b.WriteString("Missing evidence files: none.\n")
	}
	b.WriteString("\n")

	if r.DriftDetected {
		b.WriteString("Drift detected.\n")
	} else {
		b.WriteString("No drift detected.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSONSection writes the payload under a "JSON report:" heading, after a
// blank separator line.
func JSONSection(w io.Writer, payload []byte) error {
	_, err := fmt.Fprintf(w, "\nJSON report:\n%s\n", payload)
	return err
}

func citedBy(m drift.MissingEvidence) string {
	labels := make([]string, 0, len(m.Memories))
	for _, ref := range m.Memories {
		if l := ref.Label(); l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return "n/a"
	}
	return strings.Join(labels, ", ")
}
