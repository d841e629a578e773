package types

import "github.com/taskmesh/taskmesh/pkg/ids"

// Token names a class of worker a task may require, e.g. "gpu" or "macos".
// It is also used as the key of Task.Resources: a resource request is just
// a token with an optional metered value attached.
type Token string

// UnmeteredValue is the sentinel resource value meaning "required, but not
// quantified" - the only resource magnitude this allocator understands.
// Any other value is accepted as a required capability;
// allocator.ResourceAwarePolicy logs it as unsupported, while
// allocator.EvenLoadPolicy does not look at values at all.
const UnmeteredValue int64 = -1

// Task is the immutable descriptor the allocator reasons about. It is a
// client-submitted callable-plus-arguments reference: the allocator itself
// never touches Payload/Function/Argument object IDs, it only reads TaskID
// and the key set of Resources.
type Task struct {
	TaskID            ids.TaskID
	ClientID          []byte
	Resources         map[Token]int64
	PayloadObjectID   ids.ObjectID
	FunctionObjectID  ids.ObjectID
	ArgumentObjectIDs []ids.ObjectID
}

// RequiredCapabilities projects a task's resource-request keys into the
// capability set the allocator matches against. Values are not interpreted
// beyond the UnmeteredValue sentinel - see Task.Resources doc.
func (t Task) RequiredCapabilities() []Token {
	if len(t.Resources) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(t.Resources))
	for tok := range t.Resources {
		tokens = append(tokens, tok)
	}
	return tokens
}
