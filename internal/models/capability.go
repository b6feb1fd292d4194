package models

import "strings"

// Capability is the static record for one chat model.
type Capability struct {
	ModelID        string `yaml:"id" json:"id"`
	DisplayName    string `yaml:"name" json:"name"`
	Description    string `yaml:"description" json:"description"`
	SupportsImages bool   `yaml:"supports_images" json:"supportsImages"`
}

// Unknown is the record returned for unrecognised ids: no image support.
func Unknown(modelID string) Capability {
	return Capability{ModelID: modelID, DisplayName: modelID}
}

func (c Capability) normalized() Capability {
	c.ModelID = strings.TrimSpace(c.ModelID)
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	c.Description = strings.TrimSpace(c.Description)
	if c.DisplayName == "" {
		c.DisplayName = c.ModelID
	}
	return c
}

// DefaultModelID is used when neither the user nor the config picks a model.
const DefaultModelID = "deepseek/deepseek-chat-v3-0324:free"

// BuiltinCapabilities is the catalog used when no models file is configured.
func BuiltinCapabilities() []Capability {
	return []Capability{
		{ModelID: DefaultModelID, DisplayName: "DeepSeek V3", Description: "DeepSeek 通用对话模型，仅支持文本输入"},
		{ModelID: "deepseek/deepseek-r1:free", DisplayName: "DeepSeek R1", Description: "DeepSeek 推理模型，输出思考过程，仅支持文本输入"},
		{ModelID: "qwen/qwen2.5-vl-72b-instruct:free", DisplayName: "Qwen2.5 VL 72B", Description: "通义千问视觉语言模型，支持文本和图像输入", SupportsImages: true},
		{ModelID: "google/gemini-2.0-flash-exp:free", DisplayName: "Gemini 2.0 Flash", Description: "Google 多模态模型，支持文本和图像输入", SupportsImages: true},
		{ModelID: "meta-llama/llama-4-maverick:free", DisplayName: "Llama 4 Maverick", Description: "Meta 多模态模型，支持文本和图像输入", SupportsImages: true},
	}
}
