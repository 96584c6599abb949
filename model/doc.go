// Package model defines stable boundary types for API layers.
//
// Runtime identity (program IDs, manifest canonical bytes and CIDs) is
// unaffected by any projection. These structs are the only types intended
// for direct JSON/YAML serialization by consumers.
package model
