package claude

import (
	"context"
	"fmt"
	"io"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/mfeller/photocat/internal/tagger"
)

// ClaudeSuggester asks the Anthropic Messages API for tag suggestions.
type ClaudeSuggester struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewClaudeSuggester(apiKey, model string) *ClaudeSuggester {
	return &ClaudeSuggester{
		client: anthropic.NewClient(apiKey),
		model:  anthropic.Model(model),
	}
}

func (s *ClaudeSuggester) Suggest(ctx context.Context, r io.Reader, mimeType string) ([]string, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := s.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: s.model,
		// Tags are short; 256 tokens is ample headroom.
		MaxTokens: 256,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64, normaliseMIME(mimeType), imageData)),
					anthropic.NewTextMessageContent(tagger.SuggestPrompt),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	return tagger.ParseResponse(resp.GetFirstContentText()), nil
}

// normaliseMIME maps unexpected MIME types to image/jpeg, which is what the
// upload handler defaults unknown image formats to.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
