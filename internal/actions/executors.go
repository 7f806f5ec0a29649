package actions

import (
	"context"
	"time"

	"github.com/shaiso/Cadence/internal/domain"
)

// Симуляционные executors.
//
// Реальные интеграции (API провайдера outreach-платформы) встают на
// место этих реализаций через Registry.Register; движку важен только
// контракт Executor. Delay имитирует длительность внешнего вызова;
// нулевое значение означает default для данного действия.

// simulate ждёт d с учётом отмены контекста.
func simulate(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stringConfig достаёт строковое поле из конфигурации узла.
func stringConfig(node *domain.Node, key string) string {
	if node.Config == nil {
		return ""
	}
	if v, ok := node.Config[key].(string); ok {
		return v
	}
	return ""
}

// StartExecutor — точка входа workflow. Ничего не делает.
type StartExecutor struct {
	Delay time.Duration
}

func (e *StartExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}
	ec.Logf("start node %q entered", node.ID)
	return &Result{NextHandle: domain.DefaultHandle}, nil
}

// SendConnectionExecutor отправляет connection request.
type SendConnectionExecutor struct {
	Delay time.Duration
}

func (e *SendConnectionExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	ec.Logf("sending connection request for node %q", node.ID)
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}
	ec.Logf("connection request sent for node %q", node.ID)
	return &Result{
		NextHandle: domain.DefaultHandle,
		Meta:       map[string]any{"connectionRequestedAt": time.Now().UTC().Format(time.RFC3339)},
	}, nil
}

// SendMessageExecutor отправляет сообщение по шаблону из config.
type SendMessageExecutor struct {
	Delay time.Duration
}

func (e *SendMessageExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	template := stringConfig(node, "template")
	ec.Logf("sending message for node %q (template %q)", node.ID, template)
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}
	ec.Logf("message sent for node %q", node.ID)
	return &Result{
		NextHandle: domain.DefaultHandle,
		Meta:       map[string]any{"lastMessageNode": node.ID},
	}, nil
}

// InMailExecutor отправляет InMail.
type InMailExecutor struct {
	Delay time.Duration
}

func (e *InMailExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	ec.Logf("sending inmail for node %q", node.ID)
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}
	ec.Logf("inmail sent for node %q", node.ID)
	return &Result{NextHandle: domain.DefaultHandle}, nil
}

// ViewProfileExecutor открывает профиль lead'а.
type ViewProfileExecutor struct {
	Delay time.Duration
}

func (e *ViewProfileExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	state := ec.State()
	ec.Logf("viewing profile %v for node %q", state.Lead["profileUrl"], node.ID)
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}
	return &Result{
		NextHandle: domain.DefaultHandle,
		Meta:       map[string]any{"profileViewed": true},
	}, nil
}

// FollowExecutor подписывается на lead'а.
type FollowExecutor struct {
	Delay time.Duration
}

func (e *FollowExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	ec.Logf("following lead for node %q", node.ID)
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}
	return &Result{NextHandle: domain.DefaultHandle}, nil
}

// LikePostExecutor лайкает последний пост lead'а.
type LikePostExecutor struct {
	Delay time.Duration
}

func (e *LikePostExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	ec.Logf("liking post for node %q", node.ID)
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}
	return &Result{NextHandle: domain.DefaultHandle}, nil
}

// IfConnectionExecutor — ветвление по установленному контакту.
//
// Решение детерминировано: берётся поле "connected" из snapshot lead'а
// (с учётом meta-override "connected", если предыдущий узел его выставил).
// Выходы: "yes" / "no".
type IfConnectionExecutor struct {
	Delay time.Duration
}

func (e *IfConnectionExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}

	state := ec.State()
	connected, _ := state.Meta["connected"].(bool)
	if !connected {
		connected, _ = state.Lead["connected"].(bool)
	}

	handle := "no"
	if connected {
		handle = "yes"
	}
	ec.Logf("if-connection node %q evaluated to %q", node.ID, handle)
	return &Result{NextHandle: handle}, nil
}

// IfOpenProfileExecutor — ветвление по открытости профиля.
// Выходы: "yes" / "no"; отсутствие поля "openProfile" в snapshot — "no".
type IfOpenProfileExecutor struct {
	Delay time.Duration
}

func (e *IfOpenProfileExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	if err := simulate(ctx, e.Delay); err != nil {
		return nil, err
	}

	state := ec.State()
	open, _ := state.Lead["openProfile"].(bool)

	handle := "no"
	if open {
		handle = "yes"
	}
	ec.Logf("if-open-profile node %q evaluated to %q", node.ID, handle)
	return &Result{NextHandle: handle}, nil
}

// DefaultExecutor — fallback для неизвестных типов действий.
// Логирует и продолжает по default handle; traversal не прерывается.
type DefaultExecutor struct{}

func (e *DefaultExecutor) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	ec.Logf("unknown action kind %q for node %q, passing through", node.Kind, node.ID)
	return &Result{NextHandle: domain.DefaultHandle}, nil
}
