// Package ui renders styled terminal output for sync and enrichment runs.
//
// Commands print with the shared [Palette] so status lines, summaries, and
// errors are consistent across subcommands. Rendering is write-once: the
// package formats strings for the command layer to print, it never owns the
// terminal.
package ui
