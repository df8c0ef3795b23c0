package ai

import "sort"

// ModelName identifies one of the supported completion models. Presets may
// only reference members of this set; anything else is rejected before a
// gateway call is attempted.
type ModelName string

const (
	GPT40125Preview   ModelName = "gpt-4-0125-preview"
	GPT4TurboPreview  ModelName = "gpt-4-turbo-preview"
	GPT41106Preview   ModelName = "gpt-4-1106-preview"
	GPT4VisionPreview ModelName = "gpt-4-vision-preview"
	GPT4              ModelName = "gpt-4"
	GPT40613          ModelName = "gpt-4-0613"
	GPT432K           ModelName = "gpt-4-32k"
	GPT432K0613       ModelName = "gpt-4-32k-0613"
	GPT35Turbo0125    ModelName = "gpt-3.5-turbo-0125"
	GPT35Turbo        ModelName = "gpt-3.5-turbo"
	GPT35Turbo1106    ModelName = "gpt-3.5-turbo-1106"
	GPT35TurboInstr   ModelName = "gpt-3.5-turbo-instruct"
	GPT35Turbo16K     ModelName = "gpt-3.5-turbo-16k"
)

// ModelSpec carries the capability flags for one supported model.
type ModelSpec struct {
	Name      ModelName
	MaxTokens int
	// Chat marks models served by the chat-completions endpoint.
	// Instruct-style models are completion-only and are not dispatched
	// through the chat path.
	Chat bool
}

var catalog = map[ModelName]ModelSpec{
	GPT40125Preview:   {Name: GPT40125Preview, MaxTokens: 4096, Chat: true},
	GPT4TurboPreview:  {Name: GPT4TurboPreview, MaxTokens: 4096, Chat: true},
	GPT41106Preview:   {Name: GPT41106Preview, MaxTokens: 4096, Chat: true},
	GPT4VisionPreview: {Name: GPT4VisionPreview, MaxTokens: 4096, Chat: true},
	GPT4:              {Name: GPT4, MaxTokens: 8192, Chat: true},
	GPT40613:          {Name: GPT40613, MaxTokens: 8192, Chat: true},
	GPT432K:           {Name: GPT432K, MaxTokens: 32768, Chat: true},
	GPT432K0613:       {Name: GPT432K0613, MaxTokens: 32768, Chat: true},
	GPT35Turbo0125:    {Name: GPT35Turbo0125, MaxTokens: 4096, Chat: true},
	GPT35Turbo:        {Name: GPT35Turbo, MaxTokens: 4096, Chat: true},
	GPT35Turbo1106:    {Name: GPT35Turbo1106, MaxTokens: 4096, Chat: true},
	GPT35TurboInstr:   {Name: GPT35TurboInstr, MaxTokens: 4096, Chat: false},
	GPT35Turbo16K:     {Name: GPT35Turbo16K, MaxTokens: 16385, Chat: true},
}

// LookupModel returns the spec for name, if it is a supported model.
func LookupModel(name string) (ModelSpec, bool) {
	spec, ok := catalog[ModelName(name)]
	return spec, ok
}

// IsChatModel reports whether name is a supported chat-style model.
func IsChatModel(name string) bool {
	spec, ok := catalog[ModelName(name)]
	return ok && spec.Chat
}

// SupportedModels lists every catalog entry, for preset validation surfaces.
func SupportedModels() []ModelSpec {
	specs := make([]ModelSpec, 0, len(catalog))
	for _, spec := range catalog {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
