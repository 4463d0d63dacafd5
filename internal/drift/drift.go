// Package drift compares cited evidence with evidence on disk.
package drift

import (
	"github.com/starford/nightsync/internal/allowlist"
	"github.com/starford/nightsync/internal/evidence"
	"github.com/starford/nightsync/internal/memory"
	"github.com/starford/nightsync/internal/models"
	"github.com/starford/nightsync/internal/storage"
)

// MissingMemory is an evidence file that no memory record cites.
type MissingMemory struct {
	Path string `json:"path"`
	Spec string `json:"spec"`
}

// MissingEvidence is a cited path that does not exist on disk. Fields are
// declared in key order so the JSON encoding is sorted.
type MissingEvidence struct {
	Memories []models.MemoryRef `json:"memories"`
	Path     string             `json:"path"`
	Spec     string             `json:"spec"`
}

// Stats are the run counters.
type Stats struct {
	AllowlistSize        int      `json:"allowlist_size"`
	EvidenceFilesScanned int      `json:"evidence_files_scanned"`
	MemoryEntriesScanned int      `json:"memory_entries_scanned"`
	MemoryReferenceCount int      `json:"memory_reference_count"`
	MemoryReferencePaths int      `json:"memory_reference_paths"`
	SpecFilter           []string `json:"spec_filter"`
}

// Report is the reconciliation result.
type Report struct {
	DriftDetected   bool              `json:"drift_detected"`
	MissingEvidence []MissingEvidence `json:"missing_evidence"`
	MissingMemory   []MissingMemory   `json:"missing_memory"`
	Stats           Stats             `json:"stats"`
}

// Input bundles everything Reconcile needs.
type Input struct {
	Index          memory.Index
	RecordsScanned int
	Evidence       storage.PathSet
	Allowlist      *allowlist.Matcher
	Filter         evidence.Filter
}

// Reconcile computes both drift directions. Paths the allowlist matches are
// never reported. The result depends only on in.
func Reconcile(in Input) *Report {
	r := &Report{
		MissingEvidence: []MissingEvidence{},
		MissingMemory:   []MissingMemory{},
	}

	for _, p := range in.Evidence.Sorted() {
		if _, cited := in.Index[p]; cited || in.Allowlist.Allowed(p) {
			continue
		}
		r.MissingMemory = append(r.MissingMemory, MissingMemory{Path: p, Spec: evidence.SpecID(p)})
	}

	for _, p := range in.Index.Paths() {
		if in.Evidence.Has(p) || in.Allowlist.Allowed(p) {
			continue
		}
		refs := make([]models.MemoryRef, len(in.Index[p]))
		copy(refs, in.Index[p])
		r.MissingEvidence = append(r.MissingEvidence, MissingEvidence{
			Memories: refs,
			Path:     p,
			Spec:     evidence.SpecID(p),
		})
	}

	r.DriftDetected = len(r.MissingMemory) > 0 || len(r.MissingEvidence) > 0
	r.Stats = Stats{
		AllowlistSize:        in.Allowlist.Len(),
		EvidenceFilesScanned: len(in.Evidence),
		MemoryEntriesScanned: in.RecordsScanned,
		MemoryReferenceCount: in.Index.RefCount(),
		MemoryReferencePaths: len(in.Index),
		SpecFilter:           in.Filter.IDs(),
	}
	return r
}
