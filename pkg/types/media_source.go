package types

// ContentID names a node in the media source catalog.
// It is opaque to the gateway: only the backend interprets its structure.
type ContentID string

func (id ContentID) String() string {
	return string(id)
}

func (id ContentID) IsEmpty() bool {
	return id == ""
}

// Node is one entry of the catalog tree, either a folder or a playable leaf.
type Node struct {
	Title     string     `json:"title"`
	ContentID ContentID  `json:"media_content_id"`
	CanExpand bool       `json:"can_expand"`
	Parent    *ContentID `json:"parent"`
	Children  []Node     `json:"children"`

	// passthrough from the backend, never interpreted
	CanPlay          bool   `json:"can_play,omitempty"`
	MediaClass       string `json:"media_class,omitempty"`
	MediaContentType string `json:"media_content_type,omitempty"`
	Thumbnail        string `json:"thumbnail,omitempty"`
}

// DisplayTitle falls back to the identifier when the backend gave no title.
func (n Node) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}

	return string(n.ContentID)
}

type ResolvedMedia struct {
	Url      string `json:"url"`
	MimeType string `json:"mime_type"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
