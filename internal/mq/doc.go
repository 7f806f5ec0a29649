// Package mq содержит слой работы с RabbitMQ: соединение с
// автоматическим reconnect, топологию (обменники, очереди кампаний,
// DLQ), публикацию и потребление сообщений, подписку на события
// жизненного цикла jobs.
//
// Топология:
//
//	cadence.jobs (direct)
//	└── campaign.jobs.<campaign_id> [routing: <campaign_id>]
//	        Consumer: worker кампании
//	        DLQ: dlq.jobs, x-max-priority: 10
//
//	cadence.events (topic)
//	└── exclusive очереди подписчиков [routing: campaign.<id>.#]
//	        Consumer: SSE relay
//
//	cadence.control (fanout)
//	└── exclusive очереди worker-процессов
//	        Команды: create/pause/resume/remove
//
//	cadence.dlq (direct)
//	└── dlq.jobs [routing: jobs]
//	        Manual processing
package mq
