// Package models defines domain entities for the stopmo frame sync client.
//
// The package contains document types mirrored byte-for-byte onto remote
// storage and transient pipeline types:
//
//   - [ProjectConfig] : the single JSON record describing a project's frame
//     sequence and playback parameters, stored at projects/{id}/config.json
//   - [Frame] : one numbered slot in the sequence, photographed or not
//   - [FrameUpload] : a captured image queued for remote synchronization
//   - [SyncResult] : per-frame outcome of a sync pass
//
// ProjectConfig is deliberately a plain serializable struct: all lifecycle
// and mutation rules live in the project store, and all remote access in the
// storage client.
package models
