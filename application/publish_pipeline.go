package application

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const DefaultMessageExpiry = 10 * time.Second

type PublishPipelineParams struct {
	MQTTClient    MQTTClient
	Cache         *ExpiryCache
	Registry      FieldRegistry
	Manufacturers ManufacturerTable

	TTL            time.Duration
	PublishOptions PublishOptions

	Metrics Metrics

	Log zerolog.Logger
}

func (p *PublishPipelineParams) EnsureDefaults() {
	if p.Registry == nil {
		p.Registry = DefaultFieldRegistry
	}

	if p.Manufacturers == nil {
		p.Manufacturers = DefaultManufacturers
	}

	if p.TTL == 0 {
		p.TTL = DefaultExpiryTTL
	}

	if p.Metrics == nil {
		p.Metrics = nopMetrics{}
	}
}

// PublishPipeline turns decoded sensor payloads into one publication per
// registered field.
type PublishPipeline struct {
	params PublishPipelineParams

	log zerolog.Logger
}

func NewPublishPipeline(params PublishPipelineParams) (*PublishPipeline, error) {
	if params.MQTTClient == nil {
		return nil, fmt.Errorf("MQTTClient is nil")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("Cache is nil")
	}
	params.EnsureDefaults()

	if err := params.Registry.Validate(); err != nil {
		return nil, err
	}

	return &PublishPipeline{params: params, log: params.Log}, nil
}

// Publish dispatches every non-blank registered field of payload under
// prefix and returns how many publications were issued. Completion is
// reported asynchronously; a failed field never stops the others. When two
// keys share a topic suffix only the first one in registry order is sent.
func (p *PublishPipeline) Publish(prefix string, payload SensorPayload) int {
	published := 0
	seen := make(map[string]bool, len(payload))
	for _, fd := range p.params.Registry {
		raw, ok := payload[fd.Key]
		if !ok || isBlankValue(raw) || seen[fd.TopicSuffix] {
			continue
		}
		seen[fd.TopicSuffix] = true

		var value string
		if fd.Key == FieldManufacturerID {
			value = p.params.Manufacturers.Resolve(raw)
		} else {
			value = FormatValue(raw)
		}

		topic := prefix + "/" + fd.TopicSuffix
		p.publish(topic, value)
		published++

		if fd.CacheEligible {
			p.params.Cache.Touch(topic, p.params.TTL)
		}
	}
	return published
}

// PublishReset is the expiry handler: it publishes the zero value for a
// topic that went quiet. It does not touch the cache again.
func (p *PublishPipeline) PublishReset(topic string, value string) {
	p.params.MQTTClient.PublishAsync(topic, []byte(value), p.params.PublishOptions, func(err error) {
		if err != nil {
			p.params.Metrics.IncPublishFailed()
			p.log.Error().Err(err).Str("topic", topic).Msg("failed to reset expired topic")
			return
		}
		p.log.Debug().Str("topic", topic).Msg("expired topic reset")
	})
}

func (p *PublishPipeline) publish(topic string, value string) {
	p.params.MQTTClient.PublishAsync(topic, []byte(value), p.params.PublishOptions, func(err error) {
		if err != nil {
			p.params.Metrics.IncPublishFailed()
			p.log.Error().Err(err).Str("topic", topic).Msg("failed to publish")
			return
		}
		p.params.Metrics.IncPublished()
		p.log.Debug().Str("topic", topic).Str("value", value).Msg("published")
	})
}
