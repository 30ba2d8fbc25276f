// Package rag orchestrates retrieval-augmented answering: similarity
// search, prompt assembly under a precision mode, language model calls
// and token streaming. Failures in the query path are absorbed into a
// user-safe answer and logged; they never reach the caller as errors.
package rag

import (
	"context"
	"strings"
	"sync"

	"hiraku/logger"
	"hiraku/model"
	"hiraku/types"
	"hiraku/vector"
)

// fallbackAnswer is the uniform user-safe reply for retrieval or model
// failures.
const fallbackAnswer = "Sorry, I ran into a problem while answering your question. Please try again."

const (
	defaultK         = 3
	sourcePreviewLen = 200
)

const (
	accurateGreeting    = "Hello! Ask me a question about your documents and I'll answer from them."
	interactiveGreeting = "Hi there! Ask me about your documents — I'll lean on them first and tag anything that comes from my own knowledge."
	flexibleGreetingPrompt = "You are a friendly assistant. Reply to the user's greeting with one or two short, varied sentences inviting them to ask about their documents."
)

// Engine answers questions for one tenant. The precision mode is the
// only durable per-session state; everything else is stateless per call.
type Engine struct {
	index vector.Index
	llm   model.ChatClient
	log   *logger.Logger

	mu   sync.RWMutex
	mode types.PrecisionMode
}

func NewEngine(index vector.Index, llm model.ChatClient, log *logger.Logger) *Engine {
	return &Engine{
		index: index,
		llm:   llm,
		log:   log.With("component", "rag_engine"),
		mode:  types.ModeAccurate,
	}
}

// Mode returns the current precision mode.
func (e *Engine) Mode() types.PrecisionMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// SetMode switches the precision mode. Pure configuration: no side
// effects beyond future prompt construction.
func (e *Engine) SetMode(mode types.PrecisionMode) error {
	parsed, err := types.ParsePrecisionMode(string(mode))
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.mode = parsed
	e.mu.Unlock()
	return nil
}

// HasDocuments reports whether the tenant's vector index holds any
// records. Index errors degrade to false.
func (e *Engine) HasDocuments(ctx context.Context) bool {
	ok, err := e.index.HasAny(ctx)
	if err != nil {
		e.log.Error("vector index availability check failed", "error", err)
		return false
	}
	return ok
}

// Answer runs the full query pipeline. The returned error is non-nil
// only when ctx is done; every other failure produces the fallback
// answer with empty sources.
func (e *Engine) Answer(ctx context.Context, question string, history []types.ChatMessage, k int) (*types.Answer, error) {
	mode := e.Mode()
	normalized := NormalizeQuestion(question)

	if IsGreeting(normalized) {
		return &types.Answer{Text: e.greet(ctx, mode, question), Sources: []types.Source{}}, nil
	}

	contextText, sources := e.retrieve(ctx, question, k)
	messages := BuildMessages(mode, contextText, FilterHistory(history, normalized), question)

	text, err := e.llm.Chat(ctx, messages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Error("model call failed", "mode", mode, "error", err)
		return &types.Answer{Text: fallbackAnswer, Sources: []types.Source{}}, nil
	}
	return &types.Answer{Text: strings.TrimSpace(text), Sources: sources}, nil
}

// StreamAnswer is the streaming variant of Answer: fragments are
// forwarded to onDelta in arrival order with no extra buffering. The
// stream is finite and not restartable. Model failures before the first
// fragment produce the fallback answer; a failure mid-stream ends the
// stream (the caller persists whatever it accumulated).
func (e *Engine) StreamAnswer(ctx context.Context, question string, history []types.ChatMessage, k int, onDelta func(delta string)) error {
	mode := e.Mode()
	normalized := NormalizeQuestion(question)

	if IsGreeting(normalized) {
		if mode == types.ModeFlexible {
			messages := []model.Message{
				{Role: types.RoleSystem, Content: flexibleGreetingPrompt},
				{Role: types.RoleUser, Content: question},
			}
			emitted := false
			_, err := e.llm.ChatStream(ctx, messages, func(delta string) {
				emitted = true
				onDelta(delta)
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.log.Error("greeting model call failed", "error", err)
				if !emitted {
					onDelta(interactiveGreeting)
				}
			}
			return nil
		}
		onDelta(e.greet(ctx, mode, question))
		return nil
	}

	contextText, _ := e.retrieve(ctx, question, k)
	messages := BuildMessages(mode, contextText, FilterHistory(history, normalized), question)

	emitted := false
	_, err := e.llm.ChatStream(ctx, messages, func(delta string) {
		emitted = true
		onDelta(delta)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log.Error("model stream failed", "mode", mode, "error", err)
		if !emitted {
			onDelta(fallbackAnswer)
		}
	}
	return nil
}

// retrieve runs similarity search and shapes the document context and
// sources. An empty or unreachable index degrades to empty context:
// the orchestrator proceeds and the model may say it lacks information.
func (e *Engine) retrieve(ctx context.Context, question string, k int) (string, []types.Source) {
	if k <= 0 {
		k = defaultK
	}

	hasAny, err := e.index.HasAny(ctx)
	if err != nil {
		e.log.Error("retrieval failed", "stage", "has_any", "error", err)
		return "", []types.Source{}
	}
	if !hasAny {
		return "", []types.Source{}
	}

	matches, err := e.index.Search(ctx, question, k)
	if err != nil {
		e.log.Error("retrieval failed", "stage", "search", "error", err)
		return "", []types.Source{}
	}

	texts := make([]string, 0, len(matches))
	sources := make([]types.Source, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
		sources = append(sources, types.Source{
			Content:    preview(m.Text),
			Source:     m.Metadata.Source,
			Similarity: 1 - m.Distance,
		})
	}
	return strings.Join(texts, "\n\n"), sources
}

// greet produces the mode-specific greeting reply. Only the flexible
// mode consults the language model, for variety; its failure falls back
// to static text.
func (e *Engine) greet(ctx context.Context, mode types.PrecisionMode, question string) string {
	switch mode {
	case types.ModeInteractive:
		return interactiveGreeting
	case types.ModeFlexible:
		messages := []model.Message{
			{Role: types.RoleSystem, Content: flexibleGreetingPrompt},
			{Role: types.RoleUser, Content: question},
		}
		text, err := e.llm.Chat(ctx, messages)
		if err != nil || strings.TrimSpace(text) == "" {
			e.log.Error("greeting model call failed", "error", err)
			return interactiveGreeting
		}
		return strings.TrimSpace(text)
	default:
		return accurateGreeting
	}
}

func preview(text string) string {
	if len(text) > sourcePreviewLen {
		return text[:sourcePreviewLen] + "..."
	}
	return text
}
