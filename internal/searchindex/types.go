// Package searchindex holds the index definition: the target index's
// name, mapping body, and the rules for turning a feed.SourceDocument into
// the bulk commands that materialize its revisions. Grounded on
// original_source/eevee/indexing/indexes.py's Index class.
package searchindex

// DocType is the fixed document type carried in every bulk action, kept
// for parity with the original source even though OpenSearch itself no
// longer uses mapping types.
const DocType = "_doc"

// RecordIDField is the key injected into every revision's Data map holding
// the owning record's id. The reconciliation query and pre-delete
// delete_by_query in the worker's flush protocol both filter on this field
// (spec.md §4.C: "data._id"), so it must be present verbatim in the
// indexed payload, not just derivable from the composite document _id.
const RecordIDField = "_id"

// BulkCommand is the (action, payload) pair forming one logical bulk
// indexing operation, spec.md §3.
type BulkCommand struct {
	Action  BulkAction
	Payload BulkPayload
}

// BulkAction is the bulk protocol's action line.
type BulkAction struct {
	Index BulkActionIndex `json:"index"`
}

// BulkActionIndex names the operation target.
type BulkActionIndex struct {
	ID    string `json:"_id"`
	Index string `json:"_index"`
	Type  string `json:"_type"`
}

// BulkPayload is the bulk protocol's document line.
type BulkPayload struct {
	Data map[string]any `json:"data"`
	Meta BulkMeta       `json:"meta"`
}

// BulkMeta carries the version-range metadata that makes a revision
// addressable at a point in time. Version is a pointer so the versionless
// boundary case (spec.md §8) can represent "absent" rather than zero.
type BulkMeta struct {
	Version     *int64       `json:"version,omitempty"`
	Versions    VersionRange `json:"versions"`
	NextVersion *int64       `json:"next_version,omitempty"`
}

// VersionRange is meta.versions: a date_range with gte always set and lt
// set only when a next revision exists.
type VersionRange struct {
	GTE int64  `json:"gte"`
	LT  *int64 `json:"lt,omitempty"`
}
