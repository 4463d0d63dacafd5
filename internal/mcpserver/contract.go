package mcpserver

// ReportFormatContract documents the JSON drift report returned by the
// detect_drift tool.
const ReportFormatContract = `# Nightsync Drift Report Format

The report compares evidence cited in local-memory entries with the evidence
files present on disk. Keys are always emitted in sorted order.

## Fields

- ` + "`drift_detected`" + ` (bool): true when either list below is non-empty.
- ` + "`missing_memory`" + ` (array): evidence files no memory entry cites.
  Each item: ` + "`{\"path\": string, \"spec\": string}`" + `.
- ` + "`missing_evidence`" + ` (array): cited paths with no file on disk.
  Each item: ` + "`{\"memories\": [{\"id\", \"slug\", \"summary\"}], \"path\", \"spec\"}`" + `.
  ` + "`id`" + ` and ` + "`slug`" + ` are echoed as they appear in the memory record (any JSON value, or null); ` + "`summary`" + ` is at most 200 characters.
- ` + "`stats`" + ` (object): ` + "`allowlist_size`" + `, ` + "`evidence_files_scanned`" + `,
  ` + "`memory_entries_scanned`" + `, ` + "`memory_reference_count`" + `,
  ` + "`memory_reference_paths`" + `, ` + "`spec_filter`" + ` (sorted, upper-case).

## Spec ids

The spec id of a path is the segment after ` + "`commands/`" + ` when it starts with
` + "`SPEC-`" + ` (any case). Other paths belong to ` + "`GLOBAL`" + `.

## Exit status (CLI)

- 0: no drift
- 1: drift detected
- 2: the check could not run (missing input, malformed memory record, bad config)
`
