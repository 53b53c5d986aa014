// Package headless runs a single task from a YAML run file without user
// interaction.
//
// A run file names the task, an optional timeout, skill restrictions and
// per-run overrides for any config section. The executor hands the task to
// the agent once and records the outcome:
//
//	output/runs/<run id>/
//	    execution.json   full summary, trace included
//	    summary.md       reply, plan progress and step list
//
// A run that ends in waiting_user (for example asking for an SMS code) is a
// normal outcome; the caller can continue it interactively with the
// returned conversation.
package headless
