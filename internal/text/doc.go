// Package text turns raw clipboard, HTTP, file or page text into plain text
// that a speech engine can read aloud. It strips Markdown, drops code blocks
// and URLs, and escapes the result for embedding in SSML.
package text
