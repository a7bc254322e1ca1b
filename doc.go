// Package sqlbridge exposes SQL database connectivity as reusable building
// blocks for workflow code: connection components that render a DSN per
// dialect, a Connector that wraps a lazily opened database/sql engine with
// a per-statement cursor cache so repeated fetch calls page instead of
// re-executing, and one-shot Execute/Query helpers.
//
// The library never imports a driver. Link the drivers you need and pick a
// dialect; sqlbridge only assembles the connection string and forwards
// calls to database/sql.
package sqlbridge
