// Package scheduler реализует периодический запуск кампаний.
//
// Scheduler на каждом тике выбирает due schedules (enabled=true,
// next_due_at <= now), создаёт для них runs со snapshot'ами leads,
// ставит jobs в очередь кампании и сдвигает next_due_at по
// cron-выражению.
//
// Структура:
//   - scheduler.go — основная логика (Tick, processSchedule)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Идемпотентность:
//
// Ключ идемпотентности run — "{schedule_id}_{next_due_at_unix}", поэтому
// повторная обработка одного due-времени (после рестарта или при гонке
// процессов) не создаёт дубликатов.
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock:
// Tick() вызывается только лидером.
package scheduler
