package tracing

// Span names and attribute keys used by the pipeline.
const (
	SpanUpdate  = "pipeline.update"
	SpanExecute = "pipeline.execute"
	// SpanPassPrefix is followed by the pass name.
	SpanPassPrefix = "pipeline.pass."

	AttrRunID    = "run.id"
	AttrTargets  = "targets"
	AttrNodeName = "node.name"
	AttrNodeKind = "node.kind"
	AttrRequest  = "node.request"
)
