// Package types defines the Record entity, the RecordStore interface, backend
// configuration, and the error taxonomy shared by every pantry component.
package types
