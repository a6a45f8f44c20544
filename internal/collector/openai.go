package collector

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIModelVerifier checks configured model IDs against OpenAI's models
// endpoint. A 404 means the model was retired; any other failure is
// reported so the caller can decide to keep the configured entry.
type OpenAIModelVerifier struct {
	client openai.Client
}

// NewOpenAIModelVerifier creates a verifier with the given API key.
func NewOpenAIModelVerifier(apiKey string) *OpenAIModelVerifier {
	return &OpenAIModelVerifier{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// ModelExists implements ModelVerifier.
func (v *OpenAIModelVerifier) ModelExists(ctx context.Context, model string) (bool, error) {
	_, err := v.client.Models.Get(ctx, model)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
