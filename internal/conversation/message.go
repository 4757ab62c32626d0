// File: internal/conversation/message.go
package conversation

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType tags the variant held by a Block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockImage      BlockType = "image"
)

// MediaTypePNG is the only media type produced by the computer tool.
const MediaTypePNG = "image/png"

// ImageSource carries an inline base64 image.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Block is one element of a message's content. Only the fields belonging to
// its Type are meaningful:
//
//	text:        Text
//	tool_use:    ID, Name, Input
//	tool_result: ToolUseID, IsError, Content (text and image blocks only)
//	image:       Source
type Block struct {
	Type BlockType `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string  `json:"tool_use_id,omitempty"`
	IsError   bool    `json:"is_error,omitempty"`
	Content   []Block `json:"content,omitempty"`

	Source *ImageSource `json:"source,omitempty"`
}

// TextBlock builds a text block.
func TextBlock(text string) Block {
	return Block{Type: BlockText, Text: text}
}

// ToolUseBlock builds a tool request. A nil input is sent as an empty object.
func ToolUseBlock(id, name string, input json.RawMessage) Block {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	return Block{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock builds the answer to the tool request with the given id.
func ToolResultBlock(toolUseID string, isError bool, content ...Block) Block {
	return Block{Type: BlockToolResult, ToolUseID: toolUseID, IsError: isError, Content: content}
}

// ImageBlock builds an inline base64 image block.
func ImageBlock(mediaType, data string) Block {
	return Block{
		Type:   BlockImage,
		Source: &ImageSource{Type: "base64", MediaType: mediaType, Data: data},
	}
}

// Action returns the "action" field of a tool_use input, or "" when the
// block is not a tool request or carries no action.
func (b Block) Action() string {
	if b.Type != BlockToolUse || len(b.Input) == 0 {
		return ""
	}
	v := jsoniter.Get(b.Input, "action")
	if v.ValueType() != jsoniter.StringValue {
		return ""
	}
	return v.ToString()
}

// Message is one turn of the conversation. Plain text content is represented
// as a single text block.
type Message struct {
	Role    Role    `json:"role"`
	Content []Block `json:"content"`
}

// UserText builds a user message holding one text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []Block{TextBlock(text)}}
}

// ToolUses returns the tool_use blocks of the message in order.
func (m Message) ToolUses() []Block {
	var uses []Block
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// Conversation is the append-only history of a single run.
type Conversation struct {
	messages []Message
}

// New starts a conversation with the given messages.
func New(initial ...Message) *Conversation {
	return &Conversation{messages: append([]Message(nil), initial...)}
}

// Append adds a message at the end.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// Messages exposes the history. Callers may prune image content in place but
// must not reorder or remove messages.
func (c *Conversation) Messages() []Message {
	return c.messages
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// PruneImages applies PruneImages to the whole history.
func (c *Conversation) PruneImages(keep int) int {
	return PruneImages(c.messages, keep)
}

// MarshalJSON renders the history in wire order, mainly for debug logs.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(c.messages)
}
