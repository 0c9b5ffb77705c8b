package webpush

import "encoding/json"

// Message is the notification shown by the service worker. It is encoded as
// compact JSON and never persisted.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Emoji string `json:"emoji,omitempty"`
	URL   string `json:"url"`
	Tag   string `json:"tag,omitempty"`
}

// Marshal returns the payload bytes. An empty URL opens the app root.
func (m Message) Marshal() ([]byte, error) {
	if m.URL == "" {
		m.URL = "/"
	}
	return json.Marshal(m)
}
