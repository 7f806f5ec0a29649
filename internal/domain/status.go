package domain

// RunStatus — статус выполнения campaign run.
//
// Жизненный цикл:
//
//	pending → running → completed
//	                  ↘ failed
//	          (или) → canceled (из pending или running)
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "pending"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "running"

	// RunStatusCompleted — все leads обработаны.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusFailed — run завершился с ошибкой (фатальной или после всех retry).
	RunStatusFailed RunStatus = "failed"

	// RunStatusCanceled — run отменён пользователем.
	RunStatusCanceled RunStatus = "canceled"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// LeadStatus — статус участия lead в run.
//
// Жизненный цикл:
//
//	pending → running → completed
//	                  ↘ failed
type LeadStatus string

const (
	// LeadStatusPending — lead ожидает обработки.
	LeadStatusPending LeadStatus = "pending"

	// LeadStatusRunning — traversal для lead выполняется.
	LeadStatusRunning LeadStatus = "running"

	// LeadStatusCompleted — traversal успешно завершён.
	LeadStatusCompleted LeadStatus = "completed"

	// LeadStatusFailed — traversal завершился ошибкой узла.
	LeadStatusFailed LeadStatus = "failed"
)

// IsTerminal возвращает true, если статус финальный.
func (s LeadStatus) IsTerminal() bool {
	switch s {
	case LeadStatusCompleted, LeadStatusFailed:
		return true
	default:
		return false
	}
}

// ExecutionStatus — статус записи NodeExecution.
// Записи append-only, поэтому статусов всего два.
type ExecutionStatus string

const (
	// ExecutionStatusCompleted — узел выполнен успешно.
	ExecutionStatusCompleted ExecutionStatus = "completed"

	// ExecutionStatusFailed — executor узла вернул ошибку.
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// QueueStatus — статус очереди кампании.
type QueueStatus string

const (
	// QueueStatusActive — очередь принимает и раздаёт jobs.
	QueueStatusActive QueueStatus = "active"

	// QueueStatusPaused — dequeue остановлен, jobs копятся.
	QueueStatusPaused QueueStatus = "paused"
)

// CampaignStatus — статус кампании.
type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "draft"
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusArchived CampaignStatus = "archived"
)

// ErrorStrategy — стратегия обработки ошибок job (выбирается per campaign).
type ErrorStrategy string

const (
	// ErrorStrategyRetryWithBackoff — переотправить job с exponential backoff.
	// При retry в payload попадают только незавершённые leads.
	ErrorStrategyRetryWithBackoff ErrorStrategy = "retry-with-backoff"

	// ErrorStrategyPauseOnFailure — остановить очередь кампании целиком.
	ErrorStrategyPauseOnFailure ErrorStrategy = "pause-on-failure"

	// ErrorStrategySkipAndContinue — пометить job как failed без retry.
	ErrorStrategySkipAndContinue ErrorStrategy = "skip-and-continue"
)

// ParseErrorStrategy парсит строку в ErrorStrategy.
// Пустая или неизвестная строка — стратегия по умолчанию.
func ParseErrorStrategy(s string) ErrorStrategy {
	switch ErrorStrategy(s) {
	case ErrorStrategyPauseOnFailure:
		return ErrorStrategyPauseOnFailure
	case ErrorStrategySkipAndContinue:
		return ErrorStrategySkipAndContinue
	default:
		return ErrorStrategyRetryWithBackoff
	}
}

// LogLevel — уровень строки CampaignLog.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
