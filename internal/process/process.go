package process

// Controller starts and stops the proxy engine against a profile path.
type Controller interface {
	Run(configPath string) error
	Stop() error
	Running() bool
	// ConfigPath is the profile currently or most recently applied.
	ConfigPath() string
}
