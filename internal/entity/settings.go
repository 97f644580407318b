package entity

// Settings is the persisted user state. An empty CurrentSub means no profile is selected.
// Subscription indexes are visible to the front end, so order only changes on deletion.
type Settings struct {
	Enabled       bool           `yaml:"enable"`
	CurrentSub    string         `yaml:"current_sub"`
	Subscriptions []Subscription `yaml:"subscriptions"`
}

func (s Settings) Clone() Settings {
	s.Subscriptions = append([]Subscription(nil), s.Subscriptions...)

	return s
}

// RuntimeState lives for the process lifetime. Dirty is set by the control core and
// cleared only by the settings persister.
type RuntimeState struct {
	HomeDir string
	Dirty   bool
}
