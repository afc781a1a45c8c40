// Package source loads policy definitions from outside the store.
//
// Policy authoring is external to this engine; the file source is its
// landing surface. Sync diffs loaded policies against the store's latest
// versions so a reload only writes what actually changed, and the fsnotify
// watcher turns on-disk edits into debounced reloads.
package source
