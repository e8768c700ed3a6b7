package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/screening-seat-engine/internal/model"
)

// Publisher publishes ReservationConfirmedEvents to a durable queue.  It
// satisfies booking.ReservationNotifier.  Errors are logged and returned
// so the caller can choose to ignore them; the reservation itself is
// already committed when Publisher runs.
type Publisher struct {
    url   string
    queue string
}

// NewPublisher returns a publisher for queue on the broker at url.
func NewPublisher(url, queue string) *Publisher {
    return &Publisher{url: url, queue: queue}
}

// ReservationConfirmed dials the broker, declares the queue (idempotent)
// and publishes one persistent message.
func (p *Publisher) ReservationConfirmed(ctx context.Context, r model.Reservation, seats []model.Seat) error {
    pub, err := newPublishing(NewReservationConfirmedEvent(r, seats))
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}

func newPublishing(ev ReservationConfirmedEvent) (amqp.Publishing, error) {
    body, err := json.Marshal(ev)
    if err != nil {
        return amqp.Publishing{}, err
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    uuid.NewString(),
        Type:         "reservation.confirmed",
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }, nil
}
