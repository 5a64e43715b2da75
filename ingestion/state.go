package ingestion

// state tracks an ingestion attempt through the pipeline. The order is the
// write order: the catalog record is only written after the vector index is
// durable, so a crash at any earlier state leaves no record pointing at a
// missing index.
type state int

const (
	stateReceived state = iota
	stateDedupChecked
	stateExtracted
	stateChunked
	stateEmbedded
	stateIndexed
	stateCataloged
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateReceived:
		return "received"
	case stateDedupChecked:
		return "dedup_checked"
	case stateExtracted:
		return "extracted"
	case stateChunked:
		return "chunked"
	case stateEmbedded:
		return "embedded"
	case stateIndexed:
		return "indexed"
	case stateCataloged:
		return "cataloged"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
