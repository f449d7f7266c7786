// Package models defines the persisted entities of the appcanvas application builder.
//
// # Entities
//
//   - [App]: a user-owned application. Owns exactly one [Canvas] and any number of [Workflow] records.
//   - [Canvas]: layout metadata plus the opaque builder state blob (CanvasState).
//   - [CanvasElement]: one positioned, stylable unit on a canvas, optionally grouped (GroupID)
//     or parented (ParentID). Carries nested [ElementInteraction] and [ElementValidation] rows.
//   - [CanvasHistory]: an append-only audit record of a single mutation.
//   - [Workflow]: a node/edge automation graph attached to one element of an app.
//
// All entities are GORM models. Free-form JSON columns use [gorm.io/datatypes.JSON] so the same
// structs work against PostgreSQL (jsonb) and SQLite (json).
//
// # JSON blobs at the boundary
//
// Blobs supplied by the builder UI are not trusted to be well formed. [ParseBlob] turns raw
// request bytes into one of two variants, [Parsed] or [Unparsed], exactly once when the request
// is decoded. Everything below the HTTP layer only ever handles the [Parsed] variant.
//
// # Ownership
//
// The owning user of every canvas, element and workflow is App.OwnerID. Models do not enforce
// ownership themselves; see [App.OwnedBy] and the request handlers in
// [github.com/appcanvas/appcanvas/pkg/appcanvas].
package models
