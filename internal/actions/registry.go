package actions

import (
	"github.com/shaiso/Cadence/internal/domain"
)

// Registry — реестр executor'ов по типу действия.
//
// Диспетчеризация закрытая: множество типов фиксировано в domain
// (KnownKinds), а для неизвестного типа возвращается default executor —
// traversal никогда не падает из-за незарегистрированного узла.
type Registry struct {
	executors  map[domain.ActionKind]Executor
	defaultVal Executor
}

// NewRegistry создаёт реестр с зарегистрированными executor'ами
// по умолчанию для всех известных типов действий.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.Register(domain.KindStart, &StartExecutor{})
	r.Register(domain.KindSendConnection, &SendConnectionExecutor{})
	r.Register(domain.KindSendMessage, &SendMessageExecutor{})
	r.Register(domain.KindInMail, &InMailExecutor{})
	r.Register(domain.KindViewProfile, &ViewProfileExecutor{})
	r.Register(domain.KindFollow, &FollowExecutor{})
	r.Register(domain.KindLikePost, &LikePostExecutor{})
	r.Register(domain.KindIfConnection, &IfConnectionExecutor{})
	r.Register(domain.KindIfOpenProfile, &IfOpenProfileExecutor{})
	return r
}

// NewEmptyRegistry создаёт реестр без действий, только с default
// executor'ом. Используется в тестах для детерминированных подмен.
func NewEmptyRegistry() *Registry {
	return &Registry{
		executors:  make(map[domain.ActionKind]Executor),
		defaultVal: &DefaultExecutor{},
	}
}

// Register добавляет (или заменяет) executor для типа действия.
func (r *Registry) Register(kind domain.ActionKind, executor Executor) {
	r.executors[kind] = executor
}

// SetDefault заменяет fallback executor для неизвестных типов.
func (r *Registry) SetDefault(executor Executor) {
	r.defaultVal = executor
}

// Get возвращает executor для типа действия.
// Для незарегистрированного типа возвращается default executor.
func (r *Registry) Get(kind domain.ActionKind) Executor {
	if executor, ok := r.executors[kind]; ok {
		return executor
	}
	return r.defaultVal
}
