// Package extract pulls readable text out of web pages and local files so
// it can be queued for speech.
package extract
