package chat

import "github.com/deepchat-ai/deepchat/internal/models"

// CapabilityLookup resolves a model id to its capability record. Unknown ids
// must resolve to a record that declares no image support.
type CapabilityLookup interface {
	Capability(modelID string) models.Capability
}

// Gate is the pre-flight check run before an upstream call is opened.
type Gate struct {
	lookup CapabilityLookup
}

func NewGate(lookup CapabilityLookup) Gate {
	return Gate{lookup: lookup}
}

// Check returns a *CapabilityMismatchError when messages carry an image and
// the model does not accept images.
func (g Gate) Check(modelID string, messages []ChatMessage) error {
	if !ContainsImage(messages) {
		return nil
	}
	capability := models.Unknown(modelID)
	if g.lookup != nil {
		capability = g.lookup.Capability(modelID)
	}
	if capability.SupportsImages {
		return nil
	}
	return &CapabilityMismatchError{ModelID: modelID, DisplayName: capability.DisplayName}
}

func (g Gate) Allowed(modelID string, messages []ChatMessage) bool {
	return g.Check(modelID, messages) == nil
}
