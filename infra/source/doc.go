// Package source reads schedule tables from delimited text or spreadsheet
// files into raw rows. Readers are registered by format name ("csv",
// "xlsx") and created from configuration through the factory registry.
package source
