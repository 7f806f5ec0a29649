package mq

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeJobs — direct exchange для campaign jobs. Каждая кампания
	// получает собственную durable очередь, привязанную по campaign ID.
	ExchangeJobs Exchange = "cadence.jobs"

	// ExchangeEvents — topic exchange для событий жизненного цикла job.
	// Routing key: campaign.<campaign_id>.job.<status>.
	ExchangeEvents Exchange = "cadence.events"

	// ExchangeControl — fanout exchange для команд управления очередями
	// (create/pause/resume/remove). API публикует, worker-процессы слушают.
	ExchangeControl Exchange = "cadence.control"

	// ExchangeDLQ — direct exchange для dead letter.
	ExchangeDLQ Exchange = "cadence.dlq"
)

// QueueDLQJobs — очередь dead letter для campaign jobs.
const QueueDLQJobs = "dlq.jobs"

// RoutingKeyDLQJobs — ключ маршрутизации в DLQ.
const RoutingKeyDLQJobs RoutingKey = "jobs"

// MaxJobPriority — максимальный приоритет campaign job (x-max-priority).
const MaxJobPriority = 10

// CampaignQueueName возвращает имя durable очереди кампании.
func CampaignQueueName(campaignID uuid.UUID) string {
	return "campaign.jobs." + campaignID.String()
}

// SetupTopology объявляет статическую часть топологии: обменники и DLQ.
// Очереди кампаний объявляются динамически через DeclareCampaignQueue.
// Все операции идемпотентны, вызов при старте каждого процесса безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		exchanges := []struct {
			name Exchange
			kind string
		}{
			{ExchangeJobs, "direct"},
			{ExchangeEvents, "topic"},
			{ExchangeControl, "fanout"},
			{ExchangeDLQ, "direct"},
		}

		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		if _, err := ch.QueueDeclare(
			QueueDLQJobs, // name
			true,         // durable
			false,        // delete when unused
			false,        // exclusive
			false,        // no-wait
			nil,          // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueDLQJobs, err)
		}

		if err := ch.QueueBind(
			QueueDLQJobs,
			string(RoutingKeyDLQJobs),
			string(ExchangeDLQ),
			false,
			nil,
		); err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueDLQJobs, err)
		}

		return nil
	})
}

// DeclareCampaignQueue объявляет durable очередь кампании и привязывает
// её к ExchangeJobs по campaign ID. Сообщения, отклонённые после retry,
// уходят в DLQ; x-max-priority позволяет приоритизировать manual runs.
func DeclareCampaignQueue(ctx context.Context, conn *Connection, campaignID uuid.UUID) (string, error) {
	name := CampaignQueueName(campaignID)

	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		args := amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
			"x-max-priority":            int32(MaxJobPriority),
		}

		if _, err := ch.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			args,  // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		if err := ch.QueueBind(
			name,
			campaignID.String(), // routing key
			string(ExchangeJobs),
			false,
			nil,
		); err != nil {
			return fmt.Errorf("bind queue %s: %w", name, err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return name, nil
}

// DeclareControlQueue объявляет эксклюзивную auto-delete очередь
// процесса и привязывает её к control exchange. Каждый worker-процесс
// получает копию каждой команды (fanout).
func DeclareControlQueue(ctx context.Context, conn *Connection) (string, error) {
	var name string

	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare(
			"",    // auto-generated name
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare control queue: %w", err)
		}

		if err := ch.QueueBind(q.Name, "", string(ExchangeControl), false, nil); err != nil {
			return fmt.Errorf("bind control queue %s: %w", q.Name, err)
		}

		name = q.Name
		return nil
	})
	if err != nil {
		return "", err
	}

	return name, nil
}

// DeleteCampaignQueue удаляет очередь кампании вместе с накопленными
// сообщениями.
func DeleteCampaignQueue(ctx context.Context, conn *Connection, campaignID uuid.UUID) error {
	name := CampaignQueueName(campaignID)

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if _, err := ch.QueueDelete(name, false, false, false); err != nil {
			return fmt.Errorf("delete queue %s: %w", name, err)
		}
		return nil
	})
}

// QueueDepth возвращает число сообщений, ожидающих в очереди кампании.
// Использует passive declare: очередь должна существовать.
func QueueDepth(ctx context.Context, conn *Connection, campaignID uuid.UUID) (int, error) {
	// Passive declare на несуществующей очереди закрывает канал,
	// поэтому берём отдельный канал.
	ch, err := conn.NewChannel()
	if err != nil {
		return 0, err
	}
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(
		CampaignQueueName(campaignID),
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return 0, fmt.Errorf("inspect queue %s: %w", CampaignQueueName(campaignID), err)
	}

	return q.Messages, nil
}
