// Package state shares per-query status between the poller and the UI.
//
// # Overview
//
// The background poller fetches pull/notify status for the queries the UI
// is currently showing and writes it here; the UI reads snapshots on its
// own tick. The Store is the only point where the two goroutines meet.
//
//	Poller:                        UI:
//	store.Watched()                store.Watch(ids)   (after a list load)
//	client.AdQueryStatus(ids)      store.Snapshot()   (on tick)
//	store.Update(statuses, err)
//
// # Update Semantics
//
// A successful Update replaces every status and clears the error. A failed
// Update keeps the previous statuses, records the error and counts the
// failure. Two failures in a row mark the snapshot offline.
//
// # Watching
//
// Watch replaces the watched id set. When the set actually changes the
// Changed channel is signalled so the poller can fetch right away instead of
// waiting for its next tick.
//
// # Concurrency
//
// The Store uses a readers-writer lock and returns snapshots by value with
// copied maps and slices. The zero value is ready to use.
package state
