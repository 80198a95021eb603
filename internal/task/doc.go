// Package task provides the background processing machinery for VIN tasks:
// a bounded in-memory queue, a worker-pool runner constructed explicitly at
// application bootstrap, and the per-task driver that advances a task one
// character at a time through the task store.
package task
