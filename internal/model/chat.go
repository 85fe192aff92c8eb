package model

import "encoding/json"

// ChatTurn is a single message in a chat conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user", "assistant", "tool"
	Content string `json:"content"`
}

// ChatRequest is the inbound body for the chat endpoint. CVR and Years are
// optional hints supplied by the UI.
type ChatRequest struct {
	ThreadID string     `json:"thread_id,omitempty"`
	Messages []ChatTurn `json:"messages"`
	CVR      string     `json:"cvr,omitempty"`
	Years    []int      `json:"years,omitempty"`
}

// ChatResponse is the outbound body for the chat endpoint.
type ChatResponse struct {
	ThreadID string  `json:"thread_id"`
	Blocks   []Block `json:"blocks"`
}

// Block is a renderable chat response block. Concrete types are TextBlock,
// CardBlock, TableBlock and ChoiceBlock, discriminated by their "type" field.
type Block interface {
	BlockType() string
}

// TextBlock is a plain text block.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) BlockType() string { return "text" }

// CardBlock is a small key/value snapshot (status, city, industry).
type CardBlock struct {
	Title string            `json:"title"`
	KV    map[string]string `json:"kv"`
}

func (CardBlock) BlockType() string { return "card" }

// TableBlock is a column/row table, optionally captioned. Tables are kept
// per-thread as the "last table" for CSV export.
type TableBlock struct {
	Caption  string     `json:"caption,omitempty"`
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Footnote string     `json:"footnote,omitempty"`
}

func (TableBlock) BlockType() string { return "table" }

// ChoiceItem is one selectable candidate in a ChoiceBlock.
type ChoiceItem struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// ChoiceBlock asks the user to disambiguate between candidates.
type ChoiceBlock struct {
	Prompt  string       `json:"prompt"`
	Choices []ChoiceItem `json:"choices"`
}

func (ChoiceBlock) BlockType() string { return "choice" }

// MarshalJSON for each block injects the "type" discriminator so clients can
// switch on it without a wrapper object.

func (b TextBlock) MarshalJSON() ([]byte, error) {
	type alias TextBlock
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: b.BlockType(), alias: alias(b)})
}

func (b CardBlock) MarshalJSON() ([]byte, error) {
	type alias CardBlock
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: b.BlockType(), alias: alias(b)})
}

func (b TableBlock) MarshalJSON() ([]byte, error) {
	type alias TableBlock
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: b.BlockType(), alias: alias(b)})
}

func (b ChoiceBlock) MarshalJSON() ([]byte, error) {
	type alias ChoiceBlock
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: b.BlockType(), alias: alias(b)})
}
