// Package schema provides the principal schematics for all other packages. It
// defines the provider interfaces and implementations for handling (Unix-based)
// operating system calls, serving as the foundational layer for any file
// interactions throughout the codebase.
package schema
