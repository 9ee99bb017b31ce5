package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// SummaryProvider generates prose summaries from serialized transcripts.
// It is satisfied by *Summarizer.
type SummaryProvider interface {
	Summarize(ctx context.Context, transcript string, opts ...option.RequestOption) (string, error)
	SummarizeBranch(ctx context.Context, transcript string, opts ...option.RequestOption) (string, error)
}

// Summarizer produces summaries using Claude's streaming API.
type Summarizer struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewSummarizer creates a new Summarizer with the given Anthropic client and
// configuration.
func NewSummarizer(client *anthropic.Client, model string, maxTokens int) *Summarizer {
	return &Summarizer{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Summarize generates the summary that replaces compacted history. Request
// options are forwarded to the provider unchanged.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, opts ...option.RequestOption) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", WrapError("Summarize", ErrNothingToCompact)
	}
	return s.complete(ctx, SummarizationSystemPrompt, BuildSummarizationUserPrompt(transcript), opts)
}

// SummarizeBranch generates the synopsis stored when a branch is abandoned.
func (s *Summarizer) SummarizeBranch(ctx context.Context, transcript string, opts ...option.RequestOption) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", WrapError("SummarizeBranch", ErrNothingToCompact)
	}
	return s.complete(ctx, BranchSummarySystemPrompt, BuildBranchSummaryUserPrompt(transcript), opts)
}

func (s *Summarizer) complete(ctx context.Context, system, user string, opts []option.RequestOption) (string, error) {
	stream := s.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}, opts...)

	// Accumulate the streamed response
	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return "", fmt.Errorf("%w: failed to accumulate stream: %v", ErrSummarizationFailed, err)
		}
	}

	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}

	var summary strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			summary.WriteString(text.Text)
		}
	}

	if summary.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from summarizer", ErrSummarizationFailed)
	}

	return summary.String(), nil
}
