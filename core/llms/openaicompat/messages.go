package openaicompat

import "github.com/koscakluka/ziggy/core/llms"

type message struct {
	Role    llms.MessageRole `json:"role"`
	Content string           `json:"content"`
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type responseBody struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelsResponseBody struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func toMessages(instructions string, turns []llms.Turn, prompt string) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{Role: llms.MessageRoleSystem, Content: instructions})
	}
	for _, turn := range turns {
		if turn.Prompt != "" {
			messages = append(messages, message{Role: llms.MessageRoleUser, Content: turn.Prompt})
		}
		if turn.Response != "" {
			messages = append(messages, message{Role: llms.MessageRoleAssistant, Content: turn.Response})
		}
	}
	return append(messages, message{Role: llms.MessageRoleUser, Content: prompt})
}
