package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/streamchat-ai/chat-backend/internal/admission"
	"github.com/streamchat-ai/chat-backend/internal/extract"
	"github.com/streamchat-ai/chat-backend/internal/journal"
	"github.com/streamchat-ai/chat-backend/internal/llm"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/internal/store"
	"github.com/streamchat-ai/chat-backend/pkg/logger"
	"github.com/streamchat-ai/chat-backend/pkg/metrics"
)

// TurnConfig bounds a pipeline's inputs and provider calls.
type TurnConfig struct {
	MaxMessageChars   int
	MaxUploadBytes    int64
	AllowedExtensions []string
	DefaultModel      string
	ProviderTimeout   time.Duration
	RetryAttempts     int
	RetryBackoff      time.Duration
}

// FileUpload is an optional file attached to a turn.
type FileUpload struct {
	Name      string
	Data      []byte
	UseVision bool
}

// TurnInput is one inbound chat-turn request. Identity is always explicit;
// the pipeline reads no ambient state.
type TurnInput struct {
	ConversationID string
	UserID         string
	Message        string
	Model          string
	File           *FileUpload
}

// TurnPipeline orchestrates a single chat turn: validate, admit, ingest,
// persist the user turn, assemble the bounded context, dispatch to the
// provider, relay fragments live, and persist the assistant turn exactly
// once on success. Steps within a turn are strictly sequential; concurrent
// turns share nothing but the store.
type TurnPipeline struct {
	store     store.ConversationStore
	assembler *HistoryAssembler
	registry  *llm.Registry
	extractor extract.Extractor
	admitter  admission.Admitter
	journal   journal.Journal
	logger    *logger.Logger
	cfg       TurnConfig

	allowed map[string]bool
}

// NewTurnPipeline creates a pipeline.
func NewTurnPipeline(
	st store.ConversationStore,
	assembler *HistoryAssembler,
	registry *llm.Registry,
	extractor extract.Extractor,
	admitter admission.Admitter,
	jnl journal.Journal,
	log *logger.Logger,
	cfg TurnConfig,
) *TurnPipeline {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &TurnPipeline{
		store:     st,
		assembler: assembler,
		registry:  registry,
		extractor: extractor,
		admitter:  admitter,
		journal:   jnl,
		logger:    log,
		cfg:       cfg,
		allowed:   allowed,
	}
}

// Run executes one turn. The pre-stream steps run synchronously and report
// typed errors with no side effects beyond the persisted user message; once
// they succeed the returned channel delivers zero or more content events
// followed by exactly one terminal event, then closes. Cancelling ctx stops
// the relay and releases the provider stream; nothing is persisted after a
// cancel.
func (p *TurnPipeline) Run(ctx context.Context, input TurnInput) (<-chan model.StreamEvent, error) {
	// Validate
	if err := p.validate(input); err != nil {
		return nil, err
	}

	// Admit
	if err := p.admitter.Admit(ctx, input.UserID); err != nil {
		return nil, err
	}

	// Ingest
	content, err := p.ingest(ctx, input)
	if err != nil {
		return nil, err
	}

	// Persist user turn
	if _, err := p.store.AppendMessage(ctx, input.ConversationID, input.UserID, model.RoleUser, content); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	// Assemble context (includes the just-persisted user turn)
	history, err := p.assembler.BuildContext(ctx, input.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}

	modelID := input.Model
	if modelID == "" {
		modelID = p.cfg.DefaultModel
	}
	client, err := p.registry.ClientFor(modelID)
	if err != nil {
		return nil, err
	}

	out := make(chan model.StreamEvent)
	go p.relay(ctx, input, modelID, client, history, out)
	return out, nil
}

func (p *TurnPipeline) validate(input TurnInput) error {
	message := strings.TrimSpace(input.Message)

	if input.File == nil {
		if message == "" {
			return model.ValidationError("message is required")
		}
	} else {
		kind := extract.Kind(input.File.Name)
		if !p.allowed[kind] {
			return model.ValidationError("allowed types: %s", strings.Join(p.cfg.AllowedExtensions, ", "))
		}
		if int64(len(input.File.Data)) > p.cfg.MaxUploadBytes {
			return model.ValidationError("file too large (max %dMB)", p.cfg.MaxUploadBytes/(1024*1024))
		}
		if len(input.File.Data) == 0 {
			return model.ValidationError("no selected file")
		}
	}

	if utf8.RuneCountInString(input.Message) > p.cfg.MaxMessageChars {
		return model.ValidationError("message exceeds %d characters", p.cfg.MaxMessageChars)
	}
	return nil
}

// ingest resolves the turn's user-visible content, running extraction when a
// file is attached. Extraction failures abort the turn before anything is
// persisted.
func (p *TurnPipeline) ingest(ctx context.Context, input TurnInput) (string, error) {
	message := strings.TrimSpace(input.Message)
	if input.File == nil {
		return message, nil
	}

	extracted, err := p.extractor.Extract(ctx, input.File.Data, input.File.Name, input.File.UseVision)
	if err != nil {
		return "", err
	}
	if extracted == "" && message == "" {
		return "", model.ValidationError("no content extracted and no message provided")
	}

	label := "Document"
	if extract.IsImage(extract.Kind(input.File.Name)) {
		label = "Image Analysis"
	}
	return fmt.Sprintf("%s\n\n%s (%s): %s", message, label, input.File.Name, extracted), nil
}

// relay consumes the provider stream, forwarding each fragment to out as it
// arrives while accumulating the full response. Exactly one terminal event
// is emitted before out is closed.
func (p *TurnPipeline) relay(
	ctx context.Context,
	input TurnInput,
	modelID string,
	client llm.Client,
	history []llm.ChatMessage,
	out chan<- model.StreamEvent,
) {
	defer close(out)
	start := time.Now()

	streamCtx, cancel := ctxWithTimeout(ctx, p.cfg.ProviderTimeout)
	defer cancel()

	chunks, err := llm.StreamWithRetry(streamCtx, client, &llm.CompletionRequest{
		Model:    modelID,
		Messages: history,
	}, p.cfg.RetryAttempts, p.cfg.RetryBackoff)
	if err != nil {
		p.fail(ctx, input, modelID, client.Name(), start, err, out)
		return
	}

	var accumulator strings.Builder
	for chunk := range chunks {
		switch {
		case chunk.Err != nil:
			p.fail(ctx, input, modelID, client.Name(), start, chunk.Err, out)
			return
		case chunk.Done:
			p.finalize(ctx, input, modelID, start, accumulator.String(), out)
			return
		default:
			accumulator.WriteString(chunk.Delta)
			if !send(ctx, out, model.Fragment(chunk.Delta)) {
				p.cancelled(input, modelID)
				return
			}
		}
	}

	// Channel closed without a terminal chunk: the consumer or deadline
	// cancelled the stream. Partial output is discarded.
	p.cancelled(input, modelID)
}

// finalize persists the assistant turn and emits the done event. The write
// uses a detached context so a disconnect between Done and the write cannot
// lose an already-complete response.
func (p *TurnPipeline) finalize(ctx context.Context, input TurnInput, modelID string, start time.Time, full string, out chan<- model.StreamEvent) {
	persistCtx, cancel := goContextWithoutCancel(ctx)
	defer cancel()

	if _, err := p.store.AppendMessage(persistCtx, input.ConversationID, input.UserID, model.RoleAssistant, full); err != nil {
		p.logger.Error("failed to persist assistant message",
			zap.String("conversation_id", input.ConversationID),
			zap.Error(err),
		)
		send(ctx, out, model.ErrorEvent("failed to save response"))
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		return
	}

	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	metrics.TurnsTotal.WithLabelValues("success").Inc()
	metrics.RecordLLMStream(modelID, "success", time.Since(start).Seconds(), 0, len(full)/4)

	p.journal.Record(persistCtx, journal.TurnEvent{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Model:          modelID,
		Status:         journal.StatusCompleted,
		At:             time.Now().UTC(),
	})

	send(ctx, out, model.DoneEvent())
}

// fail surfaces a provider failure as the terminal event. The user message
// persisted earlier stays; no assistant message is written.
func (p *TurnPipeline) fail(ctx context.Context, input TurnInput, modelID, backend string, start time.Time, cause error, out chan<- model.StreamEvent) {
	perr := &model.ProviderError{Backend: backend, Cause: cause}
	p.logger.Error("provider stream failed",
		zap.String("conversation_id", input.ConversationID),
		zap.String("model", modelID),
		zap.Error(perr),
	)

	metrics.TurnsTotal.WithLabelValues("error").Inc()
	metrics.RecordLLMStream(modelID, "error", time.Since(start).Seconds(), 0, 0)

	p.journal.Record(context.Background(), journal.TurnEvent{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Model:          modelID,
		Status:         journal.StatusFailed,
		Error:          cause.Error(),
		At:             time.Now().UTC(),
	})

	if errors.Is(cause, context.DeadlineExceeded) {
		send(ctx, out, model.ErrorEvent(fmt.Sprintf("LLM error (%s): request timed out", modelID)))
		return
	}
	send(ctx, out, model.ErrorEvent(fmt.Sprintf("LLM error (%s): %v", modelID, cause)))
}

func (p *TurnPipeline) cancelled(input TurnInput, modelID string) {
	p.logger.Info("turn cancelled by client",
		zap.String("conversation_id", input.ConversationID),
		zap.String("model", modelID),
	)
	metrics.TurnsTotal.WithLabelValues("cancelled").Inc()
	p.journal.Record(context.Background(), journal.TurnEvent{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Model:          modelID,
		Status:         journal.StatusCancelled,
		At:             time.Now().UTC(),
	})
}

func send(ctx context.Context, out chan<- model.StreamEvent, event model.StreamEvent) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func ctxWithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func goContextWithoutCancel(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}
