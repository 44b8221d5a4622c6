// Package monitor polls a notification source for the number of delivered
// notifications and fans count changes out to subscribers.
//
// State (running/stopped, the count) is confined to a mainloop.Loop: every
// mutation and every subscriber callback happens on that loop. Source calls
// run on their own goroutines and post their results back to it.
//
// The count is only ever written from a fresh source read. Clearing does not
// zero it locally; ClearAll asks the source to remove everything and then
// re-reads after a short settle delay.
package monitor
