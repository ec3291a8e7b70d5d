// Package state holds the process-lifetime shared runtime state: the
// seedable source that request tokens and backend ids are drawn from, and
// the monotonic port allocator for newly provisioned backends. Instances
// are created once at startup and handed to components explicitly rather
// than living as package globals.
package state
