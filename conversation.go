package toolbridge

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Conversation is the append-only message log owned by one Loop.
// It is not safe for concurrent use.
type Conversation struct {
	messages []Message
}

// NewConversation starts a log, seeded with a system message when system is not empty.
func NewConversation(system string) *Conversation {
	c := &Conversation{}
	if system != "" {
		c.messages = append(c.messages, SystemMessage(system))
	}
	return c
}

// Append adds messages to the end of the log.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	return slices.Clone(c.messages)
}

func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Save writes the log as a JSON array of messages.
func (c *Conversation) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	msgs := c.messages
	if msgs == nil {
		msgs = []Message{}
	}
	return enc.Encode(msgs)
}

// LoadConversation reads a log written by Save.
func LoadConversation(r io.Reader) (*Conversation, error) {
	var msgs []Message
	if err := json.NewDecoder(r).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	for i, m := range msgs {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			return nil, fmt.Errorf("decode conversation: message %d has unknown role %q", i, m.Role)
		}
	}
	return &Conversation{messages: msgs}, nil
}

// SaveFile writes the log to path atomically (temp file + rename).
func (c *Conversation) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".conversation-*.json")
	if err != nil {
		return err
	}
	if err := c.Save(f); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}

// LoadConversationFile reads a log saved with SaveFile. A missing file yields
// an error wrapping os.ErrNotExist.
func LoadConversationFile(path string) (*Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := LoadConversation(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
