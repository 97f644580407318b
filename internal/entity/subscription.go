package entity

// Subscription is a remote profile mirrored to a local file.
type Subscription struct {
	Path string `json:"path" yaml:"path"`
	URL  string `json:"url" yaml:"url"`
}

func NewSubscription(path, url string) Subscription {
	return Subscription{Path: path, URL: url}
}
