package app

import (
	"fmt"
	"net/http"

	"github.com/guttosm/escrowd/config"
	"github.com/guttosm/escrowd/internal/notify"
)

// buildSinks creates one sink per name in cfg.Sinks, in order.
func buildSinks(cfg config.NotifyConfig) ([]notify.Sink, error) {
	sinks := make([]notify.Sink, 0, len(cfg.Sinks))
	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, notify.NewLogSink())
		case config.SinkWebhook:
			s, err := notify.NewWebhookSink(notify.WebhookConfig{
				URL:    cfg.Webhook.URL,
				RPS:    cfg.Webhook.RPS,
				Secret: cfg.Webhook.Secret,
				Client: &http.Client{Timeout: cfg.Webhook.Timeout},
			})
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		case config.SinkKafka:
			s, err := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("unknown notification sink %q", name)
		}
	}
	return sinks, nil
}
