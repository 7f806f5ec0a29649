// Package actions содержит реестр node executor'ов.
//
// Каждый узел workflow имеет ActionKind; Registry отображает kind в
// Executor — функцию, выполняющую side effect действия и выбирающую
// следующий handle. Множество kinds закрытое (domain.KnownKinds),
// неизвестные типы обслуживает DefaultExecutor.
//
// Контракт executor'а:
//
//	Execute(ctx, node, ec) → (Result{NextHandle, Meta}, error)
//
// ec даёт эмиссию лог-строк и read-only доступ к состоянию
// (lead snapshot + накопленные meta предыдущих узлов).
package actions
