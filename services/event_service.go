package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisEventService implements types.EventPublisher using Redis Pub/Sub.
// Each pipeline run gets its own channel, "pipeline:{runID}", so progress
// subscribers only receive events for the run they watch.
type RedisEventService struct {
	redisClient   *redis.Client
	log           *zap.SugaredLogger
	metrics       *eventMetrics
	cfg           config.EventServiceConfig
	mu            sync.RWMutex
	subscriptions map[string]subscription // Key: runID:subscriberID
}

var _ types.EventPublisher = (*RedisEventService)(nil)

type eventMetrics struct {
	publishLatency   prometheus.Histogram
	subscribeLatency prometheus.Histogram
	errorCount       prometheus.Counter
	eventCount       *prometheus.CounterVec
}

type subscription struct {
	pubsub    *redis.PubSub
	cancelCtx context.CancelFunc
}

var (
	evMetricsInstance *eventMetrics
	evMetricsOnce     sync.Once
	evDefaultRegistry = prometheus.DefaultRegisterer
)

func newEventMetrics() *eventMetrics {
	evMetricsOnce.Do(func() {
		evMetricsInstance = &eventMetrics{
			publishLatency: promauto.With(evDefaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "agripilot_event_publish_duration_seconds",
				Help:    "Time taken to publish events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			subscribeLatency: promauto.With(evDefaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "agripilot_event_subscribe_duration_seconds",
				Help:    "Time taken to establish subscriptions",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: promauto.With(evDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "agripilot_event_errors_total",
				Help: "Total number of event processing errors",
			}),
			eventCount: promauto.With(evDefaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "agripilot_events_processed_total",
				Help: "Total number of events processed",
			}, []string{"event_type"}),
		}
	})
	return evMetricsInstance
}

// resetEventMetricsForTesting resets the metrics singleton for test isolation.
func resetEventMetricsForTesting() {
	reg := prometheus.NewRegistry()
	evDefaultRegistry = reg
	evMetricsInstance = nil
	evMetricsOnce = sync.Once{}
}

func runChannel(runID string) string {
	return fmt.Sprintf("pipeline:%s", runID)
}

// NewRedisEventService returns a new instance of RedisEventService.
func NewRedisEventService(redisClient *redis.Client, cfg config.EventServiceConfig) *RedisEventService {
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 100
	}
	if cfg.PublishTimeoutSeconds <= 0 {
		cfg.PublishTimeoutSeconds = 5
	}
	return &RedisEventService{
		redisClient:   redisClient,
		log:           logger.GetLogger().Named("events"),
		metrics:       newEventMetrics(),
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}
}

// Publish serializes the event and publishes it on the run's Redis channel.
func (r *RedisEventService) Publish(ctx context.Context, runID string, event types.Event) error {
	startTime := time.Now()
	defer func() {
		r.metrics.publishLatency.Observe(time.Since(startTime).Seconds())
	}()

	// Fill defaults before validating so callers only have to set Type.
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.RunID == "" {
		event.RunID = runID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Version == 0 {
		event.Version = 1
	}

	if err := event.Validate(); err != nil {
		r.metrics.errorCount.Inc()
		return fmt.Errorf("invalid event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		r.metrics.errorCount.Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	r.metrics.eventCount.WithLabelValues(string(event.Type)).Inc()

	channel := runChannel(runID)
	r.log.Debugw("Publishing event",
		"channel", channel,
		"eventType", event.Type,
		"eventID", event.ID,
		"payloadSize", len(data),
	)

	publishCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.PublishTimeoutSeconds)*time.Second)
	defer cancel()

	if err := r.redisClient.Publish(publishCtx, channel, data).Err(); err != nil {
		r.metrics.errorCount.Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe opens a filtered event stream for one run. A second Subscribe
// with the same subscriber ID replaces the first.
func (r *RedisEventService) Subscribe(ctx context.Context, runID string, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	startTime := time.Now()
	defer func() {
		r.metrics.subscribeLatency.Observe(time.Since(startTime).Seconds())
	}()

	subscriptionKey := fmt.Sprintf("%s:%s", runID, subscriberID)
	r.mu.Lock()
	if _, exists := r.subscriptions[subscriptionKey]; exists {
		r.mu.Unlock()
		if err := r.Unsubscribe(ctx, runID, subscriberID); err != nil {
			r.log.Warnw("Failed to clean up existing subscription",
				"error", err, "runId", runID, "subscriberId", subscriberID)
		}
		r.mu.Lock()
	}
	r.mu.Unlock()

	pubsub := r.redisClient.Subscribe(ctx, runChannel(runID))

	eventChan := make(chan types.Event, r.cfg.EventBufferSize)
	subCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.subscriptions[subscriptionKey] = subscription{
		pubsub:    pubsub,
		cancelCtx: cancel,
	}
	r.mu.Unlock()

	go r.processSubscription(subCtx, pubsub, eventChan, runID, subscriptionKey, filters)

	return eventChan, nil
}

func (r *RedisEventService) processSubscription(
	ctx context.Context,
	pubsub *redis.PubSub,
	eventChan chan types.Event,
	runID string,
	subscriptionKey string,
	filters []types.EventType,
) {
	defer func() {
		close(eventChan)

		r.mu.Lock()
		delete(r.subscriptions, subscriptionKey)
		r.mu.Unlock()

		if err := pubsub.Close(); err != nil {
			r.log.Warnw("Error closing Redis pubsub", "error", err)
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.log.Infow("Redis pubsub channel closed", "runId", runID)
				return
			}

			var event types.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Errorw("Failed to unmarshal event",
					"error", err, "payload", msg.Payload)
				r.metrics.errorCount.Inc()
				continue
			}

			if len(filters) > 0 {
				matched := false
				for _, filter := range filters {
					if event.Type == filter {
						matched = true
						break
					}
				}
				if !matched {
					continue
				}
			}

			select {
			case eventChan <- event:
			default:
				r.log.Warnw("Event channel full, dropping event",
					"eventType", event.Type,
					"eventID", event.ID,
					"runId", runID)
			}

		case <-ctx.Done():
			r.log.Debugw("Subscription context canceled", "runId", runID)
			return
		}
	}
}

// Unsubscribe closes one subscriber's stream for a run.
func (r *RedisEventService) Unsubscribe(ctx context.Context, runID string, subscriberID string) error {
	subscriptionKey := fmt.Sprintf("%s:%s", runID, subscriberID)

	r.mu.Lock()
	sub, exists := r.subscriptions[subscriptionKey]
	if exists {
		delete(r.subscriptions, subscriptionKey)
	}
	r.mu.Unlock()

	if !exists {
		return nil
	}

	sub.cancelCtx()
	return nil
}

// Shutdown closes every active subscription.
func (r *RedisEventService) Shutdown() {
	r.mu.Lock()
	subs := make([]subscription, 0, len(r.subscriptions))
	for key, sub := range r.subscriptions {
		subs = append(subs, sub)
		delete(r.subscriptions, key)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.cancelCtx()
	}
}
