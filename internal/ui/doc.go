// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for reviewing a project and
// pulling its frames:
//  1. [FrameListView] : Browse the project's frame sheet
//  2. [ConfirmView] : Confirm a local frame pull
//  3. [SyncView] : Monitor real-time download progress
//  4. [ResultView] : Display per-frame outcomes
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the task Engine, providing non-blocking status reporting during transfers.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
