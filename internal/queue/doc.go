// Package queue управляет жизненным циклом очередей кампаний:
// создание, пауза, возобновление, удаление и восстановление реестра
// после рестарта из таблицы campaign_queues.
//
// Координация между процессами идёт только через брокер и БД: API
// публикует команды в control exchange, worker-процесс применяет их
// через Manager.HandleControl.
package queue
