// Package events defines the pipeline events emitted on the event bus.
//
// Available event types:
//   - DocumentEvent: a school document was written or failed
//   - CompileEvent: a document was compiled or failed
//   - RunEvent: a pipeline stage finished
package events
