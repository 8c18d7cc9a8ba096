package clients

import (
	"context"
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func TestOpenAIClient_Simplify(t *testing.T) {
	fake := &fakeCompleter{resp: completion("  Kedi uyudu.\n")}
	client := NewOpenAIClientWithAPI(fake, "", 0, quietLogger())

	out, err := client.Simplify(context.Background(), "Kedi derin bir uykuya daldı.")
	require.NoError(t, err)
	assert.Equal(t, "Kedi uyudu.", out)

	assert.Equal(t, openai.GPT3Dot5Turbo, fake.req.Model)
	assert.Equal(t, 1000, fake.req.MaxTokens)
	assert.InDelta(t, 0.7, fake.req.Temperature, 1e-6)
	require.Len(t, fake.req.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, fake.req.Messages[0].Role)
	assert.Equal(t,
		"Simplify the following Turkish text for individuals with dyslexia:\n\nOriginal text: Kedi derin bir uykuya daldı.\n\nSimplified version:",
		fake.req.Messages[0].Content)
}

func TestOpenAIClient_APIError(t *testing.T) {
	fake := &fakeCompleter{err: &openai.APIError{
		HTTPStatusCode: http.StatusUnauthorized,
		Message:        "Incorrect API key provided",
	}}
	client := NewOpenAIClientWithAPI(fake, "gpt-3.5-turbo", 1000, quietLogger())

	_, err := client.Simplify(context.Background(), "metin")
	require.Error(t, err)
	assert.Equal(t, "OpenAI API error: Incorrect API key provided", err.Error())
}

func TestOpenAIClient_TransportErrorAndEmptyChoices(t *testing.T) {
	client := NewOpenAIClientWithAPI(&fakeCompleter{err: errors.New("dial tcp: timeout")}, "m", 10, quietLogger())
	_, err := client.Simplify(context.Background(), "metin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial tcp: timeout")

	client = NewOpenAIClientWithAPI(&fakeCompleter{}, "m", 10, quietLogger())
	_, err = client.Simplify(context.Background(), "metin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
