// Package queue runs TTS jobs strictly one after another in arrival order.
// Producers enqueue from any goroutine; a single consumer goroutine hands
// each job to a Processor and moves on when it returns, whether it failed
// or not.
package queue
