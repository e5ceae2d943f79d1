// Package history persists entity state updates to the local SQLite journal.
//
// Every entity update emitted by a driver can be appended to the journal,
// giving a local record of device behaviour that survives restarts and does
// not depend on any external time-series store. The journal is append-only;
// rows are read back most-recent-first.
package history
