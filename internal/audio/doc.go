// Package audio decodes synthesized clips and plays them through the
// system output device using oto/v3.
package audio
