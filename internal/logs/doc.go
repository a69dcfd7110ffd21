// Package logs reads the daemon log file for the `animetrack logs` command.
//
// Last returns the trailing lines of a file with bounded memory and Follow
// streams lines appended after a given offset until the context ends.
package logs
