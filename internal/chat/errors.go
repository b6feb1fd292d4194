package chat

import (
	"errors"
	"fmt"
)

var (
	ErrCapabilityMismatch = errors.New("model does not accept image input")
	ErrRelayUsed          = errors.New("relay already used")
)

// CapabilityMismatchError reports image content sent to a text-only model.
type CapabilityMismatchError struct {
	ModelID     string
	DisplayName string
}

func (e *CapabilityMismatchError) Error() string {
	name := e.DisplayName
	if name == "" {
		name = e.ModelID
	}
	return fmt.Sprintf("当前模型 %s 不支持图像理解，请切换到支持图像的模型", name)
}

func (e *CapabilityMismatchError) Is(target error) bool {
	return target == ErrCapabilityMismatch
}

// UpstreamConnectError wraps a failure to establish the streaming call.
type UpstreamConnectError struct {
	Err error
}

func (e *UpstreamConnectError) Error() string {
	return fmt.Sprintf("upstream connect: %v", e.Err)
}

func (e *UpstreamConnectError) Unwrap() error { return e.Err }

// UpstreamStreamError wraps a failure after the stream was established.
type UpstreamStreamError struct {
	Err    error
	Chunks int
}

func (e *UpstreamStreamError) Error() string {
	return fmt.Sprintf("upstream stream: %v", e.Err)
}

func (e *UpstreamStreamError) Unwrap() error { return e.Err }
