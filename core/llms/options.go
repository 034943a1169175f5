package llms

type PromptOptions struct {
	Instructions string
	Turns        []Turn
	Temperature  float64
	MaxTokens    int
}

type PromptOption func(*PromptOptions)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 150
)

func NewPromptOptions(opts ...PromptOption) PromptOptions {
	options := PromptOptions{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithSystemPrompt sets the system prompt. Repeating this option overwrites
// the previous one.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *PromptOptions) { opts.Instructions = prompt }
}

// WithTurns adds earlier exchanges to the prompt. Repeating this option
// appends more turns.
func WithTurns(turns ...Turn) PromptOption {
	return func(opts *PromptOptions) { opts.Turns = append(opts.Turns, turns...) }
}

func WithTemperature(temperature float64) PromptOption {
	return func(opts *PromptOptions) { opts.Temperature = temperature }
}

func WithMaxTokens(maxTokens int) PromptOption {
	return func(opts *PromptOptions) {
		if maxTokens > 0 {
			opts.MaxTokens = maxTokens
		}
	}
}
