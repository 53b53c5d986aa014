// Package parser provides utilities for parsing structured content from LLM streams.
package parser

import (
	"strings"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/llm"
)

// reasoningTags maps opening tags to their closing tag. Qwen and DeepSeek
// distills emit <think>, other models <thinking>.
var reasoningTags = map[string]string{
	"<think>":    "</think>",
	"<thinking>": "</thinking>",
}

// ThinkingParser splits streamed content into reasoning and answer text.
// It keeps state across chunks so tags split between chunks are recognised.
type ThinkingParser struct {
	buffer    strings.Builder
	tagBuffer strings.Builder // text between a '<' and the next '>'
	closeTag  string          // non-empty while inside a reasoning block
	inTag     bool
}

// NewThinkingParser creates a new thinking parser.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse processes a content chunk and returns at most one reasoning chunk and
// one answer chunk.
func (p *ThinkingParser) Parse(content string) (thinkingChunk, messageChunk *llm.StreamChunk) {
	if content == "" {
		return nil, nil
	}

	for _, ch := range content {
		switch {
		case ch == '<':
			if p.inTag {
				// previous '<' did not open a tag
				thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.take(&p.tagBuffer))
			}
			thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.take(&p.buffer))
			p.inTag = true
			p.tagBuffer.WriteRune(ch)

		case ch == '>' && p.inTag:
			p.tagBuffer.WriteRune(ch)
			tag := p.tagBuffer.String()
			p.tagBuffer.Reset()
			p.inTag = false

			if closing, ok := reasoningTags[tag]; ok && p.closeTag == "" {
				p.closeTag = closing
				continue
			}
			if p.closeTag != "" && tag == p.closeTag {
				p.closeTag = ""
				continue
			}
			thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.chunk(tag))

		case p.inTag:
			p.tagBuffer.WriteRune(ch)

		default:
			p.buffer.WriteRune(ch)
		}
	}

	thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.take(&p.buffer))
	return thinkingChunk, messageChunk
}

// take empties b and returns its text as a chunk of the current mode.
func (p *ThinkingParser) take(b *strings.Builder) *llm.StreamChunk {
	if b.Len() == 0 {
		return nil
	}
	text := b.String()
	b.Reset()
	return p.chunk(text)
}

func (p *ThinkingParser) chunk(text string) *llm.StreamChunk {
	if text == "" {
		return nil
	}
	kind := llm.ContentTypeMessage
	if p.closeTag != "" {
		kind = llm.ContentTypeThinking
	}
	return &llm.StreamChunk{Content: text, Type: kind}
}

func (p *ThinkingParser) merge(thinking, message, next *llm.StreamChunk) (*llm.StreamChunk, *llm.StreamChunk) {
	if next == nil {
		return thinking, message
	}
	if next.Type == llm.ContentTypeThinking {
		if thinking == nil {
			return next, message
		}
		thinking.Content += next.Content
		return thinking, message
	}
	if message == nil {
		return thinking, next
	}
	message.Content += next.Content
	return thinking, message
}

// IsInThinking returns true while inside a reasoning block.
func (p *ThinkingParser) IsInThinking() bool {
	return p.closeTag != ""
}

// Flush returns buffered content. Call it once the stream ends.
func (p *ThinkingParser) Flush() (thinkingChunk, messageChunk *llm.StreamChunk) {
	if p.inTag {
		thinkingChunk, messageChunk = p.merge(thinkingChunk, messageChunk, p.take(&p.tagBuffer))
		p.inTag = false
	}
	return p.merge(thinkingChunk, messageChunk, p.take(&p.buffer))
}

// Reset clears all state for a new stream.
func (p *ThinkingParser) Reset() {
	p.buffer.Reset()
	p.tagBuffer.Reset()
	p.closeTag = ""
	p.inTag = false
}
