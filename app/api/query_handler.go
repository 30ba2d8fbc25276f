package api

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"hiraku/logger"
	"hiraku/rag"
	"hiraku/store"
	"hiraku/types"
)

const defaultTenant = "default"

// tenantFrom identifies the tenant of a request. Authentication itself
// lives in front of this service; here the identity header is trusted.
func tenantFrom(c *fiber.Ctx) string {
	if t := strings.TrimSpace(c.Get("X-User")); t != "" {
		return t
	}
	return defaultTenant
}

type QueryHandler struct {
	engines *rag.Registry
	chats   store.ChatStorer
	log     *logger.Logger
}

func NewQueryHandler(engines *rag.Registry, chats store.ChatStorer, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		engines: engines,
		chats:   chats,
		log:     log.With("handler", "query"),
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var params types.QueryParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	tenant := tenantFrom(c)
	engine, err := h.engines.Get(tenant)
	if err != nil {
		return err
	}

	history := h.loadHistory(c.UserContext(), tenant, params.SessionID)

	if params.Stream {
		return h.streamQuery(c, engine, tenant, params, history)
	}

	answer, err := engine.Answer(c.UserContext(), params.Question, history, params.K)
	if err != nil {
		return err
	}

	h.persistTurn(tenant, params.SessionID, params.Question, answer.Text)

	return c.JSON(types.QueryResponse{
		Answer:    answer.Text,
		Sources:   answer.Sources,
		SessionID: params.SessionID,
		Timestamp: time.Now().UTC(),
	})
}

// streamQuery writes fragments to the response as they arrive. The
// accumulated text is persisted once the stream ends; if the client
// disconnects mid-stream, the partial accumulation is what is saved.
func (h *QueryHandler) streamQuery(c *fiber.Ctx, engine *rag.Engine, tenant string, params types.QueryParams, history []types.ChatMessage) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var acc strings.Builder
		err := engine.StreamAnswer(ctx, params.Question, history, params.K, func(delta string) {
			acc.WriteString(delta)
			if _, werr := w.WriteString(delta); werr != nil {
				cancel()
				return
			}
			if werr := w.Flush(); werr != nil {
				cancel()
			}
		})
		if err != nil && ctx.Err() == nil {
			h.log.Error("stream failed", "tenant", tenant, "error", err)
		}

		h.persistTurn(tenant, params.SessionID, params.Question, acc.String())
	})
	return nil
}

func (h *QueryHandler) loadHistory(ctx context.Context, tenant string, sessionID int64) []types.ChatMessage {
	if sessionID == 0 {
		return nil
	}
	history, err := h.chats.GetChatHistory(ctx, tenant, sessionID, 50)
	if err != nil {
		h.log.Error("load chat history failed", "tenant", tenant, "session_id", sessionID, "error", err)
		return nil
	}
	return history
}

// persistTurn appends the user question and the assistant reply to the
// session. Persistence errors are logged, never surfaced to the user.
func (h *QueryHandler) persistTurn(tenant string, sessionID int64, question, answer string) {
	if sessionID == 0 || answer == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	turns := []types.ChatMessage{
		{Tenant: tenant, SessionID: sessionID, Role: types.RoleUser, Content: question, Timestamp: now},
		{Tenant: tenant, SessionID: sessionID, Role: types.RoleAssistant, Content: answer, Timestamp: now.Add(time.Millisecond)},
	}
	for _, msg := range turns {
		if err := h.chats.SaveChatMessage(ctx, msg); err != nil {
			h.log.Error("persist chat message failed",
				"tenant", tenant, "session_id", sessionID, "role", msg.Role, "error", err)
			return
		}
	}
}

func (h *QueryHandler) HandleGetMode(c *fiber.Ctx) error {
	engine, err := h.engines.Get(tenantFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"mode": engine.Mode()})
}

func (h *QueryHandler) HandleSetMode(c *fiber.Ctx) error {
	var params types.ModeParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	engine, err := h.engines.Get(tenantFrom(c))
	if err != nil {
		return err
	}
	if err := engine.SetMode(types.PrecisionMode(params.Mode)); err != nil {
		return NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"mode": engine.Mode()})
}

func (h *QueryHandler) HandleCreateSession(c *fiber.Ctx) error {
	var params types.SessionParams
	if len(c.Body()) > 0 && c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	id, err := h.chats.CreateSession(c.UserContext(), tenantFrom(c), params.Title)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"session_id": id})
}

func (h *QueryHandler) HandleHistory(c *fiber.Ctx) error {
	sessionID, err := c.ParamsInt("id")
	if err != nil {
		return ErrBadRequest()
	}
	history, err := h.chats.GetChatHistory(c.UserContext(), tenantFrom(c), int64(sessionID), 100)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": history})
}
