package hl7

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/arcward/hl7v2/schema"
)

// Message wraps a Node whose Kind is MessageNode, adding convenience
// accessors for the handful of MSH fields every ER7 message carries
// regardless of its structure.
type Message struct {
	*Node
}

// NewMessage constructs an empty message rooted at structureName (e.g.
// "ADT_A01"), with an MSH segment already attached and its first two
// fields populated from the tree's delimiter set.
func NewMessage(structureName string, opts ...Option) (*Message, error) {
	ctx := newTreeContext(opts)

	kind := MessageNode
	if ctx.registry != nil {
		k, _, _, found := ctx.registry.LookupStructure(structureName)
		if found {
			kind = k
		} else if ctx.level == Strict {
			return nil, fmt.Errorf("%s: %w", structureName, ErrInvalidName)
		}
	} else if ctx.level == Strict {
		return nil, fmt.Errorf("%s: %w", structureName, ErrMissingSchema)
	}

	root := &Node{Kind: kind, Name: structureName, ctx: ctx}
	m := &Message{Node: root}

	msh, err := root.AddSegment(mshSegmentID)
	if err != nil {
		return nil, err
	}
	if err := msh.Set("MSH_1", string(ctx.delims.Field)); err != nil {
		return nil, err
	}
	if err := msh.Set("MSH_2", ctx.delims.EncodingCharacters()); err != nil {
		return nil, err
	}
	return m, nil
}

// WrapMessage adapts an already-built Node (e.g. one returned by
// ParseMessage) into a Message, for callers that parsed with the package
// function directly.
func WrapMessage(n *Node) *Message { return &Message{Node: n} }

// MSH returns the message's MSH segment node.
func (m *Message) MSH() (*Node, error) {
	return m.Get(mshSegmentID)
}

func (m *Message) mshField(index int) (string, error) {
	msh, err := m.MSH()
	if err != nil {
		return "", err
	}
	f, err := msh.Get(fmt.Sprintf("MSH_%d", index))
	if err != nil {
		return "", err
	}
	return f.Value, nil
}

func (m *Message) setMSHField(index int, value string) error {
	msh, err := m.MSH()
	if err != nil {
		return err
	}
	return msh.Set(fmt.Sprintf("MSH_%d", index), value)
}

// SendingApplication returns MSH-3.1, the sending application's namespace
// ID.
func (m *Message) SendingApplication() (string, error) {
	return m.compositeHead(mshIndexSendingApp)
}

// SendingFacility returns MSH-4.1.
func (m *Message) SendingFacility() (string, error) {
	return m.compositeHead(mshIndexSendingFacility)
}

// ReceivingApplication returns MSH-5.1.
func (m *Message) ReceivingApplication() (string, error) {
	return m.compositeHead(mshIndexReceivingApp)
}

// ReceivingFacility returns MSH-6.1.
func (m *Message) ReceivingFacility() (string, error) {
	return m.compositeHead(mshIndexReceivingFac)
}

func (m *Message) compositeHead(mshFieldIndex int) (string, error) {
	msh, err := m.MSH()
	if err != nil {
		return "", err
	}
	field, err := msh.Get(fmt.Sprintf("MSH_%d", mshFieldIndex))
	if err != nil {
		return "", err
	}
	if len(field.Children) == 0 {
		return field.Value, nil
	}
	return field.Children[0].Value, nil
}

// DateTimeOfMessage returns MSH-7.
func (m *Message) DateTimeOfMessage() (string, error) {
	return m.mshField(mshIndexDateTime)
}

// MessageType returns MSH-9, the message type (e.g. "ADT^A01").
func (m *Message) MessageType() (string, error) {
	return m.mshField(mshIndexMessageType)
}

// MessageControlID returns MSH-10.
func (m *Message) MessageControlID() (string, error) {
	return m.mshField(mshIndexControlID)
}

// SetMessageControlID sets MSH-10.
func (m *Message) SetMessageControlID(id string) error {
	return m.setMSHField(mshIndexControlID, id)
}

// GenerateMessageControlID assigns a fresh, randomly generated MSH-10
// value and returns it.
func (m *Message) GenerateMessageControlID() (string, error) {
	id := uuid.New().String()
	if err := m.SetMessageControlID(id); err != nil {
		return "", err
	}
	return id, nil
}

// ProcessingID returns MSH-11.
func (m *Message) ProcessingID() (string, error) {
	return m.mshField(mshIndexProcessingID)
}

// SetProcessingID sets MSH-11 (conventionally "P", "D" or "T").
func (m *Message) SetProcessingID(id string) error {
	return m.setMSHField(mshIndexProcessingID, id)
}

// VersionID returns MSH-12.
func (m *Message) VersionID() (string, error) {
	return m.mshField(mshIndexVersionID)
}

// SetVersionID sets MSH-12.
func (m *Message) SetVersionID(v schema.Version) error {
	return m.setMSHField(mshIndexVersionID, string(v))
}
