// Package types holds the data model shared by every cifkit subsystem:
// error kinds, the keyword tri-state, cell types, callback contracts, and
// reader options. It has no dependency on the parsing internals so that
// internal/text, internal/bcif, and internal/dispatch can all depend on it
// without creating import cycles back into the public cif package.
package types
