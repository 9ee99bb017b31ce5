package agentsession

// ModelInfo contains model-specific parameters
type ModelInfo struct {
	MaxContextTokens int
	DefaultMaxTokens int
}

// KnownModels maps model IDs to their capabilities
var KnownModels = map[string]ModelInfo{
	// Claude 4 models
	"claude-sonnet-4-5-20250929": {MaxContextTokens: 200000, DefaultMaxTokens: 16384},
	"claude-opus-4-5-20251101":   {MaxContextTokens: 200000, DefaultMaxTokens: 16384},
	// Claude 3.5 models
	"claude-3-5-sonnet-20241022": {MaxContextTokens: 200000, DefaultMaxTokens: 8192},
	"claude-3-5-haiku-20241022":  {MaxContextTokens: 200000, DefaultMaxTokens: 8192},
	// Claude 3 models
	"claude-3-opus-20240229":   {MaxContextTokens: 200000, DefaultMaxTokens: 4096},
	"claude-3-sonnet-20240229": {MaxContextTokens: 200000, DefaultMaxTokens: 4096},
	"claude-3-haiku-20240307":  {MaxContextTokens: 200000, DefaultMaxTokens: 4096},
}

// GetModelInfo returns model info, using sensible defaults for unknown models
func GetModelInfo(model string) ModelInfo {
	if info, ok := KnownModels[model]; ok {
		return info
	}
	// Sensible defaults for unknown models
	return ModelInfo{MaxContextTokens: 200000, DefaultMaxTokens: 8192}
}
