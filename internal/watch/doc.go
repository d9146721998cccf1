// Package watch provides the blocking filesystem-event source behind
// srcwatch's trigger loop. It watches a source directory recursively,
// reports write-close events one at a time, and can discard events that
// queued up while the caller was busy.
package watch
