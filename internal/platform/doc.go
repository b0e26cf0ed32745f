// Package platform contains OS integration glue: download directories,
// the native folder picker and filesystem-safe file names.
package platform
