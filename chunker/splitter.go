package chunker

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Splitter cuts text into overlapping token windows so chunk size is
// measured the way the language model counts it.
type Splitter struct {
	enc       *tiktoken.Tiktoken
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return nil, err
	}
	return &Splitter{enc: enc, chunkSize: chunkSize, overlap: overlap}, nil
}

// Split returns the ordered chunks of text. Whitespace-only input
// yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := s.enc.Encode(text, nil, nil)
	if len(tokens) <= s.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + s.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := strings.TrimSpace(s.enc.Decode(tokens[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// CountTokens reports the token length of text under the splitter's
// encoding.
func (s *Splitter) CountTokens(text string) int {
	return len(s.enc.Encode(text, nil, nil))
}
