// Package diag classifies the failures of the report pipeline.
//
// # Taxonomy
//
//   - Missing optional input (InMissingInput) – non-fatal. The producing
//     registry is empty and the corresponding report section renders "None".
//   - Malformed input (InMalformedInput, InUnknownStep, InUnknownMessage,
//     InUnknownFormat) – fatal for the contribution of that file.
//   - Input consistency (ConStackUnderflow, ConReturnMismatch, ConPathMixing,
//     ConRootMismatch) – fatal, reported with the offending name or path.
//   - External tool failure (ToolFailure, ToolNotFound) – fatal for the
//     invoking step; internal/runner attaches the command output.
//   - Duplicate symbol definitions (SymDuplicate) – informational only.
//
// Codes have a stable string form (IN1001, CON2002, ...) used in log lines and
// CLI output. Error carries the code together with the input path and the
// subject of the failure so the CLI can print one actionable line.
package diag
