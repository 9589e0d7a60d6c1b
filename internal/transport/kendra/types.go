package kendra

// Wire types mirror the keyword index's JSON API.

type queryRequest struct {
	QueryText string   `json:"query_text"`
	PageSize  int      `json:"page_size"`
	UserToken string   `json:"user_token,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

type queryResponse struct {
	ResultItems []resultItem `json:"result_items"`
}

type resultItem struct {
	DocumentID      string          `json:"document_id"`
	DocumentTitle   textWithMarks   `json:"document_title"`
	DocumentExcerpt textWithMarks   `json:"document_excerpt"`
	DocumentURI     string          `json:"document_uri"`
	ScoreAttributes scoreAttributes `json:"score_attributes"`

	DocumentAttributes []attribute `json:"document_attributes"`
}

type textWithMarks struct {
	Text string `json:"text"`
}

type scoreAttributes struct {
	ScoreConfidence string `json:"score_confidence"`
}

// attribute is a typed key-value pair; exactly one value field is set.
type attribute struct {
	Key   string         `json:"key"`
	Value attributeValue `json:"value"`
}

type attributeValue struct {
	StringValue     string   `json:"string_value,omitempty"`
	StringListValue []string `json:"string_list_value,omitempty"`
	LongValue       *int64   `json:"long_value,omitempty"`
	DateValue       string   `json:"date_value,omitempty"`
}

type listRequest struct {
	PageToken string `json:"page_token,omitempty"`
}

type listResponse struct {
	Items         []listItem `json:"items"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

type listItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	URI        string      `json:"uri"`
	Content    string      `json:"content"`
	Author     string      `json:"author"`
	Created    string      `json:"created"`
	Modified   string      `json:"modified"`
	Attributes []attribute `json:"attributes"`
}

type aclRequest struct {
	DocumentID string `json:"document_id"`
}

type aclResponse struct {
	Attributes []attribute `json:"attributes"`
}

