// Package tokenizer estimates transcript size with the cl100k_base encoding.
package tokenizer

import (
	"fmt"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/types"
	"github.com/pkoukk/tiktoken-go"
)

// EncodingName is the BPE used for all estimates. Qwen and DeepSeek use
// their own vocabularies, so counts are an approximation for them.
const EncodingName = "cl100k_base"

// perMessageOverhead approximates role and separator tokens.
const perMessageOverhead = 4

// imageTokens is a flat charge per image part.
const imageTokens = 765

// Tokenizer counts tokens for strings and messages.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the encoding. It can fail when the BPE file cannot be fetched;
// callers fall back to Estimate.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(EncodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", EncodingName, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the token count of text.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return Estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens returns the token count of a transcript, including
// tool call arguments and a flat charge for image parts.
func (t *Tokenizer) CountMessagesTokens(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		total += perMessageOverhead
		total += t.CountTokens(string(msg.Role))
		total += t.CountTokens(msg.Content)
		for _, call := range msg.ToolCalls {
			total += t.CountTokens(call.Name) + t.CountTokens(call.ArgumentsJSON())
		}
		for _, part := range msg.Parts {
			if part.Type == types.ContentPartImage {
				total += imageTokens
			}
		}
	}
	return total
}

// Estimate is the fallback used without an encoding: roughly four bytes per token.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
