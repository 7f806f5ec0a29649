package engine

import "errors"

// Ошибки валидации workflow definition.
var (
	// ErrEmptyNodes — definition не содержит узлов.
	ErrEmptyNodes = errors.New("workflow definition has no nodes")

	// ErrNoStartNode — отсутствует узел типа start.
	ErrNoStartNode = errors.New("workflow definition has no start node")

	// ErrMultipleStartNodes — больше одного узла типа start.
	ErrMultipleStartNodes = errors.New("workflow definition has multiple start nodes")

	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDuplicateEdgeID — несколько рёбер с одинаковым ID.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrDanglingEdge — ребро ссылается на несуществующий узел.
	ErrDanglingEdge = errors.New("edge references unknown node")

	// ErrDuplicateHandle — несколько рёбер из одного узла с одним handle.
	// Выбор ребра стал бы недетерминированным, поэтому такие definitions
	// отклоняются при сохранении.
	ErrDuplicateHandle = errors.New("duplicate edge for (source, handle) pair")
)

// Ошибки traversal.
var (
	// ErrCycleDetected — узел посещён повторно в рамках traversal
	// одного lead. Definition с back-edge считается некорректной.
	ErrCycleDetected = errors.New("cycle detected in workflow traversal")

	// ErrUnknownNode — ребро привело в узел, которого нет в definition.
	ErrUnknownNode = errors.New("traversal reached unknown node")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	NodeID  string // ID узла или ребра, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
