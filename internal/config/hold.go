package config

import "time"

// HoldConfig tunes the seat-hold engine.
type HoldConfig struct {
    TTL              time.Duration // lifetime of an unrefreshed hold
    SweepInterval    time.Duration // how often elapsed holds are released
    SubscriberBuffer int           // live events buffered per websocket client
    LedgerTimeout    time.Duration // upper bound for one reservation append
}

func LoadHoldConfig() HoldConfig {
    c := HoldConfig{
        TTL:              envDur("HOLD_TTL", 2*time.Minute),
        SweepInterval:    envDur("HOLD_SWEEP_INTERVAL", 5*time.Second),
        SubscriberBuffer: envInt("HOLD_SUBSCRIBER_BUFFER", 16),
        LedgerTimeout:    envDur("LEDGER_TIMEOUT", 5*time.Second),
    }
    if c.TTL < time.Second { c.TTL = time.Second }
    if c.SweepInterval <= 0 { c.SweepInterval = 5 * time.Second }
    // sweeping slower than the TTL would let dead holds linger for whole periods
    if c.SweepInterval > c.TTL { c.SweepInterval = c.TTL }
    if c.SubscriberBuffer < 1 { c.SubscriberBuffer = 1 }
    if c.LedgerTimeout <= 0 { c.LedgerTimeout = 5 * time.Second }
    return c
}

// AMQPConfig configures the reservation.confirmed queue.  An empty URL
// disables publishing.
type AMQPConfig struct {
    URL             string
    Queue           string
    ConsumerEnabled bool
    LogPath         string // where the consumer appends confirmations
}

func LoadAMQPConfig() AMQPConfig {
    return AMQPConfig{
        URL:             envStr("AMQP_URL", ""),
        Queue:           envStr("AMQP_QUEUE", "reservation.confirmed"),
        ConsumerEnabled: envBool("AMQP_CONSUMER_ENABLED", false),
        LogPath:         envStr("RESERVATION_LOG_PATH", "logs/reservations.log"),
    }
}
