package ui

// Config contains picker configuration.
type Config struct {
	// Directory to search for readable files.
	Dir string

	// Include files ignored by git.
	ShowAllFiles bool

	HomeDir string `env:"HOME"`
}
