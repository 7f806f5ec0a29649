// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (репозитории, publisher, relay, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - campaign_handler.go — обработчики для /campaigns
//   - lead_handler.go     — обработчики для /lead-lists
//   - workflow_handler.go — обработчики для workflow definitions
//   - run_handler.go      — обработчики для /runs, включая SSE-прогресс
//   - queue_handler.go    — обработчики для очередей кампаний
//   - schedule_handler.go — обработчики для /schedules
//
// API предоставляет REST endpoints для управления кампаниями, leads,
// workflow definitions, runs, очередями и расписаниями.
package api
