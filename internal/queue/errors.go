package queue

import "errors"

// Ошибки менеджера очередей.
var (
	// ErrQueueExists — у кампании уже есть очередь.
	ErrQueueExists = errors.New("campaign queue already exists")

	// ErrQueueNotFound — очередь кампании не найдена.
	ErrQueueNotFound = errors.New("campaign queue not found")
)
