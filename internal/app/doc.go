// Package app is the composition root of the adindex client.
//
// # Overview
//
// New loads configuration and opens the local collaborators (log file,
// durable store, API client, push registration). Run confirms or creates a
// session, starts the status poller and hands control to the TUI until the
// user quits.
//
// # Startup
//
//	┌──────────────┐
//	│   New()      │
//	└──────┬───────┘
//	       ├─────> config.Load()               config file, env, flag overrides
//	       ├─────> logging.OpenFile()          structured log file
//	       ├─────> localstore.Open()           session + theme
//	       ├─────> adindex.NewClient()         HTTP client
//	       └─────> webpush.NewFileRegistration()
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> session.Bootstrap()         failure: error page, then exit
//	       ├─────> pushsync.New()              notification intent
//	       ├─────> Poller.Start()              background status refresh
//	       └─────> ui.Run()                    blocks
//
// # Status Polling
//
// The poller asks the server for the pull/notify status of the queries the
// UI is watching and stores it in a state.Store. The UI reads snapshots of
// that store on its own tick, so a slow status call never blocks input.
//
//	Poller goroutine                      UI (Bubble Tea loop)
//	  ├─> AdQueryStatus(watched ids)        ├─> store.Watch(ids)  wakes poller
//	  ├─> store.Update(statuses, err)       └─> store.Snapshot()  every tick
//	  └─> wait interval, doubled per consecutive failure (max 5m)
//
// Two consecutive failures mark the API offline in the header. Errors are
// logged and polling continues; the last good statuses stay visible.
//
// # Error Handling
//
// Configuration and file errors are returned from New. A session bootstrap
// failure is the only fatal runtime error: the TUI shows it as a full page
// and Run returns it after the user quits. Everything else is reported
// inside the UI.
package app
