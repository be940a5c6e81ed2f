package domain

// PathEntry is one step of the breadcrumb trail.
type PathEntry struct {
	Label          string         `json:"label"`
	CurrentPath    string         `json:"current_path"`
	PreviewPath    string         `json:"preview_path"`
	TranslationKey string         `json:"translationKey"`
	ExtraData      map[string]any `json:"extraData,omitempty"`
}
