package document

// SourceDocument is one raw inventory entry pulled from an external
// source during sync, before normalization and classification.
type SourceDocument struct {
	ID         string
	Title      string
	SourceURI  string
	Content    string
	Author     string
	Created    string
	Modified   string
	Attributes map[string]any
}

// SourcePage is one page of a source's document inventory.
type SourcePage struct {
	Items         []SourceDocument
	NextPageToken string
}
