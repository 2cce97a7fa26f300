// Package ui provides the terminal user interface of the adindex client.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Its Update loop is the only place where
// the mounted view, the notification intent and the navigation history are
// mutated. Anything that blocks (API calls, the push registration) runs in a
// tea.Cmd and comes back as a message.
//
// # Package Structure
//
//   - app.go: root Model, message routing and the Run function
//   - surface.go: the surface interface and the host that mounts surfaces
//     for the navigation controller
//   - querylist.go, queryeditor.go, adlist.go: the three view surfaces
//   - header.go: status bar, command bar and alert line
//   - fatal.go: the full-page error shown when the session bootstrap failed
//   - help.go, keys.go, modal.go: help overlay, key bindings, confirmations
//   - theme.go, style_helpers.go, strings.go: styling and text helpers
//
// # Mounting And Staleness
//
// The navigation controller owns which view state is active and numbers
// every mount. The surface host builds a surface per mount and tags every
// message its commands produce with that instance number. The root drops a
// tagged message when its instance is no longer active, so a slow load for a
// view the user already left can never touch the current one.
//
//	key press ──> surface.Update ──> tea.Cmd (API call)
//	                                    │
//	surfaceMsg{instance, msg} <─────────┘
//	    │
//	    ├─ instance inactive: dropped
//	    ├─ navigateMsg: nav.Controller.Dispatch, new surface mounted
//	    └─ otherwise: surface.Update
//
// # Notifications
//
// The header shows the notification intent as a tri-state badge (unknown,
// on, off) with a spinner while a toggle is pending, and the health of the
// last passive sync. Toggle failures surface on the global alert line;
// passive sync failures only change the health indicator.
//
// # Key Bindings
//
// Global:
//   - q / ctrl+c: Quit
//   - ?: Toggle help
//   - [ / ]: History back / forward (alt+left / alt+right while typing)
//   - n: Toggle notifications
//   - T: Cycle theme (saved to the local store)
//   - x: Dismiss alert
//
// Query list: a add, e edit, v/enter ads, s alerts, c clear, d delete, r reload.
// Editor: tab/shift+tab move, space toggles alerts, enter saves, esc cancels.
// Ads: j/k scroll, e edit, h query list, esc back to the list, r reload.
package ui
