package proxy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/RelientS/cursor-api/pkg/config"
	"github.com/RelientS/cursor-api/pkg/proxy/types"
	"github.com/RelientS/cursor-api/pkg/upstream"
)

// Model is a resolved model selection: the id the client asked for, the
// name forwarded upstream, and the modes its suffixes switched on.
type Model struct {
	ID       string
	Upstream string
	Thinking bool
	MaxMode  bool
}

// ResolveModel parses the mode suffixes off a client model id and checks
// the result against the configured listing. Suffixes compose in the order
// base, "-thinking", "-max", "-online". The thinking suffix stays part of
// the upstream name; the other two only flip flags.
//
// An unknown model is refused with a model_not_supported request error.
func ResolveModel(cfg *config.Config, id string) (Model, error) {
	name := strings.TrimSuffix(id, "-online")
	maxMode := strings.HasSuffix(name, "-max")
	name = strings.TrimSuffix(name, "-max")
	thinking := strings.HasSuffix(name, "-thinking")
	base := strings.TrimSuffix(name, "-thinking")

	if !cfg.KnownModel(name) && !cfg.KnownModel(base) {
		return Model{}, &RequestError{
			Status:  http.StatusBadRequest,
			Code:    CodeModelNotSupported,
			Message: fmt.Sprintf("model %q is not supported", id),
		}
	}
	return Model{ID: id, Upstream: name, Thinking: thinking, MaxMode: maxMode}, nil
}

// WithThinkingSuffix inserts "-thinking" into a model id ahead of any
// "-max" and "-online" suffixes. Ids already carrying the suffix come back
// unchanged.
func WithThinkingSuffix(id string) string {
	tail := ""
	base := strings.TrimSuffix(id, "-online")
	if base != id {
		tail = "-online"
	}
	trimmed := strings.TrimSuffix(base, "-max")
	if trimmed != base {
		tail = "-max" + tail
	}
	if strings.HasSuffix(trimmed, "-thinking") {
		return id
	}
	return trimmed + "-thinking" + tail
}

// ChatConversation reduces an OpenAI-dialect message history to the
// neutral conversation model.
//
// System and developer messages are lifted out of the history, wherever
// they appear, and joined into one system prompt. Assistant tool calls are
// remembered so that later tool messages can be replayed as full tool
// outcomes. The upstream requires a history that opens with a user turn
// and is never empty; both rules are enforced here.
func ChatConversation(req *types.ChatCompletionRequest, model Model) *upstream.Conversation {
	conv := &upstream.Conversation{
		Model:    model.Upstream,
		Thinking: model.Thinking,
		MaxMode:  model.MaxMode,
		Tools:    declaredTools(toolDecls(req.Tools)),
	}

	var systems []string
	calls := make(map[string]types.ChatFunctionCall)
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system", "developer":
			systems = append(systems, msg.Text())
		case "user":
			conv.Turns = append(conv.Turns, upstream.Turn{Role: upstream.RoleUser, Text: msg.Text()})
		case "assistant":
			for _, call := range msg.ToolCalls {
				calls[call.ID] = call.Function
			}
			if text := msg.Text(); text != "" || len(msg.ToolCalls) == 0 {
				conv.Turns = append(conv.Turns, upstream.Turn{Role: upstream.RoleAssistant, Text: text})
			}
		case "tool":
			fn := calls[msg.ToolCallID]
			appendToolOutcome(conv, upstream.ToolOutcome{
				ID:      msg.ToolCallID,
				Name:    fn.Name,
				Args:    fn.Arguments,
				Content: msg.Text(),
			})
		}
	}
	conv.System = strings.Join(systems, "\n\n")
	normalizeTurns(conv)
	return conv
}

// MessagesConversation reduces an Anthropic-dialect message history to the
// neutral conversation model.
//
// Assistant tool_use blocks are remembered by id so that the tool_result
// blocks of following user messages can be replayed as full tool
// outcomes. Thinking and redacted_thinking blocks ride along on their
// assistant turn. A tool_result whose id matches no remembered tool_use
// still replays, just without the call's name and arguments.
func MessagesConversation(req *types.MessagesRequest, model Model) (*upstream.Conversation, error) {
	conv := &upstream.Conversation{
		Model:    model.Upstream,
		Thinking: model.Thinking,
		MaxMode:  model.MaxMode,
		System:   types.SystemText(req.System),
		Tools:    declaredTools(messagesToolDecls(req.Tools)),
	}

	calls := make(map[string]types.ChatFunctionCall)
	for i, msg := range req.Messages {
		blocks, err := msg.Blocks()
		if err != nil {
			return nil, &RequestError{
				Status:  http.StatusBadRequest,
				Code:    CodeRequestFailed,
				Message: fmt.Sprintf("messages[%d]: %v", i, err),
			}
		}
		switch msg.Role {
		case "user":
			var texts []string
			results := 0
			for _, block := range blocks {
				switch block.Type {
				case "text":
					texts = append(texts, block.Text)
				case "tool_result":
					fn := calls[block.ToolUseID]
					appendToolOutcome(conv, upstream.ToolOutcome{
						ID:      block.ToolUseID,
						Name:    fn.Name,
						Args:    fn.Arguments,
						Content: types.ToolResultText(block.Content),
						IsError: block.IsError,
					})
					results++
				}
			}
			if len(texts) > 0 || results == 0 {
				conv.Turns = append(conv.Turns, upstream.Turn{
					Role: upstream.RoleUser,
					Text: strings.Join(texts, "\n"),
				})
			}
		case "assistant":
			turn := upstream.Turn{Role: upstream.RoleAssistant}
			var texts []string
			for _, block := range blocks {
				switch block.Type {
				case "text":
					texts = append(texts, block.Text)
				case "thinking":
					turn.Thinking = append(turn.Thinking, upstream.ThinkingBlock{
						Text:      block.Thinking,
						Signature: block.Signature,
					})
				case "redacted_thinking":
					turn.Thinking = append(turn.Thinking, upstream.ThinkingBlock{Redacted: block.Data})
				case "tool_use":
					calls[block.ID] = types.ChatFunctionCall{
						Name:      block.Name,
						Arguments: string(block.Input),
					}
				}
			}
			turn.Text = strings.Join(texts, "\n")
			if turn.Text != "" || len(turn.Thinking) > 0 {
				conv.Turns = append(conv.Turns, turn)
			}
		}
	}
	normalizeTurns(conv)
	return conv, nil
}

func toolDecls(tools []types.ChatTool) []upstream.ToolDecl {
	decls := make([]upstream.ToolDecl, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, upstream.ToolDecl{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: string(tool.Function.Parameters),
		})
	}
	return decls
}

func messagesToolDecls(tools []types.MessagesTool) []upstream.ToolDecl {
	decls := make([]upstream.ToolDecl, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, upstream.ToolDecl{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: string(tool.InputSchema),
		})
	}
	return decls
}

// declaredTools fills in the empty-schema default the upstream expects.
func declaredTools(decls []upstream.ToolDecl) []upstream.ToolDecl {
	if len(decls) == 0 {
		return nil
	}
	for i := range decls {
		if decls[i].InputSchema == "" {
			decls[i].InputSchema = "{}"
		}
	}
	return decls
}

// appendToolOutcome adds one tool result, extending a trailing tool turn
// so consecutive results replay as a single batch.
func appendToolOutcome(conv *upstream.Conversation, outcome upstream.ToolOutcome) {
	if n := len(conv.Turns); n > 0 && conv.Turns[n-1].Role == upstream.RoleTool {
		conv.Turns[n-1].Results = append(conv.Turns[n-1].Results, outcome)
		return
	}
	conv.Turns = append(conv.Turns, upstream.Turn{
		Role:    upstream.RoleTool,
		Results: []upstream.ToolOutcome{outcome},
	})
}

// normalizeTurns enforces the shape the upstream expects: at least one
// turn, and a user turn first.
func normalizeTurns(conv *upstream.Conversation) {
	if len(conv.Turns) == 0 {
		conv.Turns = []upstream.Turn{{Role: upstream.RoleUser}}
		return
	}
	if conv.Turns[0].Role != upstream.RoleUser {
		conv.Turns = append([]upstream.Turn{{Role: upstream.RoleUser}}, conv.Turns...)
	}
}
