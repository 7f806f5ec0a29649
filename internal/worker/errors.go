package worker

import (
	"errors"

	"github.com/shaiso/Cadence/internal/engine"
	"github.com/shaiso/Cadence/internal/repo"
)

// Ошибки обработки jobs.
var (
	// ErrRunNotFound — run из payload отсутствует в БД.
	ErrRunNotFound = errors.New("campaign run not found")

	// ErrRunFinished — run уже в терминальном статусе, job игнорируется.
	ErrRunFinished = errors.New("campaign run already finished")

	// ErrRunCanceled — run отменён во время обработки job.
	ErrRunCanceled = errors.New("campaign run canceled")
)

// IsFatal возвращает true для ошибок, которые retry не исправит:
// структурные дефекты definition и отсутствующие записи.
// Такие jobs немедленно проваливают run независимо от error strategy.
func IsFatal(err error) bool {
	return errors.Is(err, engine.ErrCycleDetected) ||
		errors.Is(err, engine.ErrNoStartNode) ||
		errors.Is(err, engine.ErrUnknownNode) ||
		errors.Is(err, repo.ErrNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
