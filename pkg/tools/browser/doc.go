// Package browser drives a Chromium page through Playwright from a separate
// worker process.
//
// The agent process never touches Playwright directly. It owns a Client that
// lazily spawns the current executable with the browser-worker subcommand and
// talks to it over stdin/stdout, one JSON object per line:
//
//	-> {"id":3,"op":"open_url","args":["8c1f..."],"kwargs":{"url":"https://..."}}
//	<- {"id":3,"ok":true,"value":{"url":"https://...","title":"..."}}
//
// Positional args are matched to parameter names with the same table the
// worker uses to decode keyword args, so either form reaches the typed
// parameter structs in protocol.go. Writing the line `null` asks the worker to
// close its browser and exit.
//
// The worker holds at most one Session. A second start_session returns the
// existing id with reused=true. If the worker dies mid-request the Client
// reports a session_not_found result and notifies its OnRespawn callback so
// the caller can forget the dead session id; the next call spawns a fresh
// worker. When spawning fails twice in a row the Client returns
// ErrWorkerUnavailable, which the skill registry treats as fatal.
//
// Page source can be returned raw (truncated) or reduced with CleanHTML,
// which keeps the tags and attributes useful for picking selectors.
package browser
