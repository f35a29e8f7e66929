package policy

import (
	"fmt"
	"strings"
	"sync"
)

// Engine evaluates tool execution requests against the active policy document
// and operational mode. Validate is a pure in-memory computation; SetMode and
// Reload are the only mutations and swap whole values under the write lock.
type Engine struct {
	store  *Store
	strict bool

	mu   sync.RWMutex
	mode string
}

// Option configures engine construction.
type Option func(*Engine)

// WithStrictTools makes Validate fail with UnknownToolError for tools that are
// declared nowhere in the policy, instead of falling through to default deny.
func WithStrictTools(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// NewEngine creates an engine over the given store. The mode starts at the
// document's default mode.
func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		mode:  store.Document().DefaultMode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate decides whether a tool may execute under the current mode.
//
// Check order is fixed: global block, then the mode's block list, then its
// allow list, then default deny. args and callCtx are accepted for future
// rule types and are not inspected by the current algorithm.
func (e *Engine) Validate(tool string, args, callCtx map[string]any) (Decision, error) {
	_ = args
	_ = callCtx

	toolName := strings.TrimSpace(tool)

	e.mu.RLock()
	doc := e.store.Document()
	mode := e.mode
	e.mu.RUnlock()

	if e.strict && !doc.Declared(toolName) {
		return Decision{}, &UnknownToolError{Tool: toolName}
	}

	if _, blocked := doc.GlobalBlocked[toolName]; blocked {
		return Decision{
			Tool:        toolName,
			Mode:        mode,
			Allowed:     false,
			Reason:      fmt.Sprintf("%s is globally blocked", toolName),
			RuleMatched: RuleGlobalBlock,
		}, nil
	}

	rule := doc.Modes[mode]
	if _, blocked := rule.Blocked[toolName]; blocked {
		return Decision{
			Tool:        toolName,
			Mode:        mode,
			Allowed:     false,
			Reason:      fmt.Sprintf("%s blocked in %s mode", toolName, mode),
			RuleMatched: RuleModeBlock,
		}, nil
	}
	if _, allowed := rule.Allowed[toolName]; allowed {
		return Decision{
			Tool:        toolName,
			Mode:        mode,
			Allowed:     true,
			Reason:      fmt.Sprintf("%s allowed in %s mode", toolName, mode),
			RuleMatched: RuleModeAllow,
		}, nil
	}

	return Decision{
		Tool:        toolName,
		Mode:        mode,
		Allowed:     false,
		Reason:      fmt.Sprintf("%s not explicitly allowed in %s mode", toolName, mode),
		RuleMatched: RuleDefaultDeny,
	}, nil
}

// SetMode transitions to a declared mode. The mode is left unchanged when the
// name is not declared in the active document.
func (e *Engine) SetMode(name string) error {
	mode := strings.TrimSpace(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.store.Document()
	if _, ok := doc.Modes[mode]; !ok {
		return &UnknownModeError{Mode: mode, Available: doc.ModeNames()}
	}
	e.mode = mode
	return nil
}

// CurrentMode returns the active operational mode.
func (e *Engine) CurrentMode() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Reload parses a new policy document and atomically swaps it in. A parse or
// validation failure leaves the prior document in effect. When the current
// mode is not declared in the new document, the mode falls back to the new
// document's default mode.
func (e *Engine) Reload(raw []byte) error {
	doc, err := ParseDocument(raw)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Replace(doc)
	if _, ok := doc.Modes[e.mode]; !ok {
		e.mode = doc.DefaultMode
	}
	return nil
}

// AllowedTools returns the active mode's allow list minus globally blocked
// tools, sorted. It is recomputed on every call.
func (e *Engine) AllowedTools() []string {
	e.mu.RLock()
	doc := e.store.Document()
	mode := e.mode
	e.mu.RUnlock()

	rule := doc.Modes[mode]
	allowed := make(map[string]struct{}, len(rule.Allowed))
	for tool := range rule.Allowed {
		if _, blocked := doc.GlobalBlocked[tool]; blocked {
			continue
		}
		allowed[tool] = struct{}{}
	}
	return sortedTools(allowed)
}

// BlockedTools returns the active mode's block list, sorted.
func (e *Engine) BlockedTools() []string {
	e.mu.RLock()
	doc := e.store.Document()
	mode := e.mode
	e.mu.RUnlock()

	return sortedTools(doc.Modes[mode].Blocked)
}

// GlobalBlocked returns the tools denied in every mode, sorted.
func (e *Engine) GlobalBlocked() []string {
	return sortedTools(e.store.Document().GlobalBlocked)
}

// Summary is a read projection of the current policy state.
type Summary struct {
	Policy        string   `json:"policy,omitempty"`
	Mode          string   `json:"mode"`
	Description   string   `json:"description"`
	AllowedTools  []string `json:"allowed_tools"`
	BlockedTools  []string `json:"blocked_tools"`
	GlobalBlocked []string `json:"global_blocked"`
}

// Summary builds a consistent snapshot of mode, rule sets, and global blocks.
func (e *Engine) Summary() Summary {
	e.mu.RLock()
	doc := e.store.Document()
	mode := e.mode
	e.mu.RUnlock()

	rule := doc.Modes[mode]
	allowed := make(map[string]struct{}, len(rule.Allowed))
	for tool := range rule.Allowed {
		if _, blocked := doc.GlobalBlocked[tool]; blocked {
			continue
		}
		allowed[tool] = struct{}{}
	}

	return Summary{
		Policy:        doc.Name,
		Mode:          mode,
		Description:   rule.Description,
		AllowedTools:  sortedTools(allowed),
		BlockedTools:  sortedTools(rule.Blocked),
		GlobalBlocked: sortedTools(doc.GlobalBlocked),
	}
}

// String renders an operator-readable summary.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s", s.Mode)
	if s.Description != "" {
		fmt.Fprintf(&b, " (%s)", s.Description)
	}
	fmt.Fprintf(&b, "\nallowed: %s", joinOrNone(s.AllowedTools))
	fmt.Fprintf(&b, "\nblocked: %s", joinOrNone(s.BlockedTools))
	fmt.Fprintf(&b, "\nglobally blocked: %s", joinOrNone(s.GlobalBlocked))
	return b.String()
}

func joinOrNone(tools []string) string {
	if len(tools) == 0 {
		return "(none)"
	}
	return strings.Join(tools, ", ")
}
