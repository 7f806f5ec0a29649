package actions

import (
	"context"
	"fmt"

	"github.com/shaiso/Cadence/internal/domain"
)

// State — состояние traversal, видимое executor'у.
//
// Lead — snapshot lead'а, снятый при создании run (никогда не живая
// запись). Meta — объединённые meta-результаты предыдущих узлов.
type State struct {
	Lead map[string]any
	Meta map[string]any
}

// Clone возвращает неглубокую копию состояния.
// Executors получают копию и не могут повлиять на состояние движка.
func (s State) Clone() State {
	lead := make(map[string]any, len(s.Lead))
	for k, v := range s.Lead {
		lead[k] = v
	}
	meta := make(map[string]any, len(s.Meta))
	for k, v := range s.Meta {
		meta[k] = v
	}
	return State{Lead: lead, Meta: meta}
}

// Result — результат выполнения узла.
type Result struct {
	// NextHandle — именованный выход, по которому продолжается traversal.
	// Пустое значение завершает ветку.
	NextHandle string

	// Meta — данные, добавляемые в накопленное состояние.
	Meta map[string]any
}

// ExecContext — возможности, доступные executor'у во время выполнения:
// эмиссия лог-строк и read-only доступ к состоянию.
type ExecContext struct {
	state State
	logs  []string
}

// NewExecContext создаёт контекст выполнения для одного узла.
func NewExecContext(state State) *ExecContext {
	return &ExecContext{state: state.Clone()}
}

// Log добавляет строку в лог узла.
func (c *ExecContext) Log(msg string) {
	c.logs = append(c.logs, msg)
}

// Logf добавляет форматированную строку в лог узла.
func (c *ExecContext) Logf(format string, args ...any) {
	c.logs = append(c.logs, fmt.Sprintf(format, args...))
}

// State возвращает копию текущего состояния.
func (c *ExecContext) State() State {
	return c.state.Clone()
}

// Logs возвращает собранные лог-строки.
func (c *ExecContext) Logs() []string {
	return c.logs
}

// Executor — интерфейс выполнения одного типа действия.
//
// Executor обязан быть чистым по отношению к состоянию движка:
// единственный разрешённый side effect — заявленное внешнее действие
// (API-вызов и т.п.). Retry выполняется на уровне целого lead-job,
// поэтому идемпотентность требуется на этой гранулярности.
type Executor interface {
	Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error)
}

// ExecutorFunc — адаптер функции к интерфейсу Executor.
type ExecutorFunc func(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error)

// Execute реализует Executor.
func (f ExecutorFunc) Execute(ctx context.Context, node *domain.Node, ec *ExecContext) (*Result, error) {
	return f(ctx, node, ec)
}
