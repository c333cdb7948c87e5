package document

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CurrentSchemaVersion is the schema version written by this build.
// Migration steps advance older documents one version at a time.
const CurrentSchemaVersion = 1

// Migrate upgrades a document to the current schema and syncs it with the
// live graph type.
//
// The input is consumed: Migrate mutates and returns the same document for
// efficiency, and callers must not retain the pre-migration value.
//
// Three passes run in order:
//
//  1. Structural migration: a loop applies one step per schema version. Each
//     step is idempotent and additive only - no step drops fields. Documents
//     claiming a future schema version are left untouched (forward
//     compatibility by truncation, not rejection).
//  2. Graph-type sync: if the document's GraphTypeVersion is behind the live
//     type, it is bumped and newly introduced defaulted fields (allowed
//     entities) are backfilled. Best-effort, non-breaking.
//  3. Renderer hook: network-shaped payloads get stable link ids and NoArrow
//     backfilled from the relation vocabulary.
//
// Migrate is idempotent: running it twice yields the same document.
func Migrate(d *GraphDocument, types *TypeRegistry) *GraphDocument {
	for d.SchemaVersion < CurrentSchemaVersion {
		switch d.SchemaVersion {
		case 0:
			migrateV0toV1(d, types)
		}
		d.SchemaVersion++
	}

	syncGraphType(d, types)
	patchNetworkPayload(d)

	return d
}

// migrateV0toV1 backfills Theme from the matching graph type's first theme
// entry. Documents whose type has no themes (or an unknown type) keep an
// empty theme.
func migrateV0toV1(d *GraphDocument, types *TypeRegistry) {
	if d.Theme != "" || types == nil {
		return
	}
	if t, ok := types.Lookup(d.GraphTypeID); ok {
		d.Theme = t.FirstTheme()
	}
}

// syncGraphType reconciles the document with its graph type's current
// version. This is not a semantic migration - only defaulted fields that the
// document lacks are filled in.
func syncGraphType(d *GraphDocument, types *TypeRegistry) {
	if types == nil {
		return
	}
	t, ok := types.Lookup(d.GraphTypeID)
	if !ok || d.GraphTypeVersion >= t.Version {
		return
	}
	d.GraphTypeVersion = t.Version
	if len(d.AllowedEntities) == 0 && len(t.AllowedEntities) > 0 {
		d.AllowedEntities = append([]string(nil), t.AllowedEntities...)
	}
}

// patchNetworkPayload fixes up network-shaped payloads: every link lacking a
// stable id is assigned one, and NoArrow is backfilled from the link's
// relation kind when the field is absent.
//
// The payload is handled as a generic JSON tree so fields this build does not
// know about survive the rewrite.
func patchNetworkPayload(d *GraphDocument) {
	if d.RendererID != RendererNetwork || len(d.Data) == 0 {
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(d.Data, &payload); err != nil {
		return // not network-shaped after all; leave untouched
	}
	links, ok := payload["links"].([]any)
	if !ok {
		return
	}

	changed := false
	for _, raw := range links {
		link, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := link["id"].(string); id == "" {
			link["id"] = uuid.NewString()
			changed = true
		}
		if _, present := link["no_arrow"]; !present {
			if kindID, _ := link["relation_kind_id"].(string); kindID != "" {
				if kind, ok := d.Relation(kindID); ok && kind.NoArrow {
					link["no_arrow"] = true
					changed = true
				}
			}
		}
	}

	if changed {
		if data, err := json.Marshal(payload); err == nil {
			d.Data = data
		}
	}
}
