package callback

import (
	"context"
	"sync"

	"github.com/haasonsaas/cua/internal/obs"
	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/trajectory"
)

// TrajectorySaver persists each turn's input/output snapshot and
// post-action screenshot to disk via internal/trajectory (§4.4 bundled
// callbacks, §6.5). It reads the current turn index off ctx (obs.TurnKey),
// which the orchestrator stamps in before invoking any per-turn hook — the
// same correlation key internal/obs.Logger.WithContext reads, so a single
// context value already threads both logging and trajectory persistence.
type TrajectorySaver struct {
	Base

	writer *trajectory.Writer

	mu       sync.Mutex
	inputs   map[int]responses.Items
	provider string
	model    string
}

// NewTrajectorySaver wraps an already-constructed Writer (one per run).
func NewTrajectorySaver(w *trajectory.Writer) *TrajectorySaver {
	return &TrajectorySaver{writer: w, inputs: map[int]responses.Items{}}
}

func (t *TrajectorySaver) OnLLMStart(ctx context.Context, messages responses.Items) (responses.Items, error) {
	turn := turnFromContext(ctx)
	t.mu.Lock()
	t.inputs[turn] = messages.Clone()
	t.mu.Unlock()
	return messages, nil
}

func (t *TrajectorySaver) OnAPIStart(_ context.Context, provider, model string) error {
	t.mu.Lock()
	t.provider, t.model = provider, model
	t.mu.Unlock()
	return nil
}

func (t *TrajectorySaver) OnUsage(_ context.Context, usage responses.Usage) error {
	t.mu.Lock()
	provider, model := t.provider, t.model
	t.mu.Unlock()
	t.writer.RecordUsage(provider, model, usage)
	return nil
}

func (t *TrajectorySaver) OnResponses(ctx context.Context, items responses.Items) error {
	turn := turnFromContext(ctx)
	t.mu.Lock()
	input := t.inputs[turn]
	delete(t.inputs, turn)
	t.mu.Unlock()
	return t.writer.WriteTurn(turn, input, items)
}

func (t *TrajectorySaver) OnScreenshot(ctx context.Context, _ string, pngBase64 string) error {
	return t.writer.WriteScreenshot(turnFromContext(ctx), pngBase64)
}

func (t *TrajectorySaver) OnRunEnd(context.Context, string) error {
	return t.writer.Finalize(nil)
}

func turnFromContext(ctx context.Context) int {
	turn, _ := ctx.Value(obs.TurnKey).(int)
	return turn
}
