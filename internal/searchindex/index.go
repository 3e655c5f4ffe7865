package searchindex

import (
	"fmt"

	"github.com/sudarshan/verindex/internal/feed"
)

// VersionlessPolicy decides what CommandsFor does with a SourceDocument
// that carries no Versions, per spec.md §9's design note: "the code path
// exists but no BulkCommands are synthesized in the current command
// logic... implementers should either (i) reject such records explicitly
// with a configured policy, or (ii) synthesize a single command with a
// sentinel version — do not silently drop."
type VersionlessPolicy int

const (
	// VersionlessSentinel synthesizes one command with meta.version absent
	// and versions.gte pinned to VersionlessSentinelVersion. This is the
	// default: it satisfies "do not silently drop" without inventing
	// semantics the spec doesn't describe.
	VersionlessSentinel VersionlessPolicy = iota
	// VersionlessReject returns an error for any versionless record,
	// letting the caller decide how to handle or surface it.
	VersionlessReject
)

// VersionlessSentinelVersion is the versions.gte value used for the
// synthesized command under VersionlessSentinel.
const VersionlessSentinelVersion int64 = 0

// Index represents a target index in the search cluster: its name, the
// run's version ceiling, and the command-synthesis rules for the records
// indexed into it.
type Index struct {
	prefix            string
	unprefixedName    string
	version           int64
	versionlessPolicy VersionlessPolicy
}

// New creates an Index. prefix is prepended to name to form the prefixed
// (actual cluster) index name; version is the current run's upper bound.
func New(prefix, name string, version int64, policy VersionlessPolicy) *Index {
	return &Index{
		prefix:            prefix,
		unprefixedName:    name,
		version:           version,
		versionlessPolicy: policy,
	}
}

// UnprefixedName returns the index name without the configured prefix.
func (ix *Index) UnprefixedName() string { return ix.unprefixedName }

// PrefixedName returns the actual cluster index name.
func (ix *Index) PrefixedName() string { return ix.prefix + ix.unprefixedName }

// Version returns the run's version ceiling.
func (ix *Index) Version() int64 { return ix.version }

// CommandsFor synthesizes one BulkCommand per (version, data, next_version)
// triple in doc, walking doc.Versions in ascending order with a trailing
// sentinel so the final revision's next_version is absent. The last
// emitted command is always the newest revision — the worker's id buffer
// relies on this order.
func (ix *Index) CommandsFor(doc feed.SourceDocument) ([]BulkCommand, error) {
	if len(doc.Versions) == 0 {
		switch ix.versionlessPolicy {
		case VersionlessReject:
			return nil, fmt.Errorf("record %d has no versions and the versionless policy is reject", doc.ID)
		default:
			return []BulkCommand{ix.command(doc.ID, VersionlessSentinelVersion, doc.Data, nil, false)}, nil
		}
	}

	commands := make([]BulkCommand, 0, len(doc.Versions))
	for i, version := range doc.Versions {
		var next *int64
		if i+1 < len(doc.Versions) {
			nv := doc.Versions[i+1]
			next = &nv
		}
		commands = append(commands, ix.command(doc.ID, version, doc.History[version], next, true))
	}
	return commands, nil
}

func (ix *Index) command(recordID, version int64, data map[string]any, next *int64, versionPresent bool) BulkCommand {
	action := BulkAction{
		Index: BulkActionIndex{
			ID:    fmt.Sprintf("%d:%d", recordID, version),
			Index: ix.PrefixedName(),
			Type:  DocType,
		},
	}

	taggedData := make(map[string]any, len(data)+1)
	for k, v := range data {
		taggedData[k] = v
	}
	taggedData[RecordIDField] = recordID

	meta := BulkMeta{Versions: VersionRange{GTE: version}}
	if versionPresent {
		v := version
		meta.Version = &v
	}
	if next != nil {
		meta.Versions.LT = next
		meta.NextVersion = next
	}

	return BulkCommand{
		Action:  action,
		Payload: BulkPayload{Data: taggedData, Meta: meta},
	}
}
