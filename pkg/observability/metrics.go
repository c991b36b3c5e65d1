package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics publishes station metrics to CloudWatch. A nil client turns
// every call into a no-op so local and offline stations skip it cleanly.
type Metrics struct {
	namespace string
	stationID string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace, stationID string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		stationID: stationID,
		client:    client,
		logger:    logger,
	}
}

// RecordMaturationPass records the duration and proposal counts of one
// maturation cycle
func (m *Metrics) RecordMaturationPass(ctx context.Context, duration time.Duration, generated, applied int) {
	if m.client == nil {
		return
	}

	now := time.Now()
	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("MaturationDuration"),
			Dimensions: m.stationDimensions(),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(now),
		},
		{
			MetricName: aws.String("ProposalsGenerated"),
			Dimensions: m.stationDimensions(),
			Value:      aws.Float64(float64(generated)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
		{
			MetricName: aws.String("ProposalsApplied"),
			Dimensions: m.stationDimensions(),
			Value:      aws.Float64(float64(applied)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
	}

	m.put(ctx, metricData)
}

// RecordQueueDepth records the replication queue backlog
func (m *Metrics) RecordQueueDepth(ctx context.Context, depth int) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("ReplicationQueueDepth"),
			Dimensions: m.stationDimensions(),
			Value:      aws.Float64(float64(depth)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

// RecordReplicationMode counts which transport a replication pass used
func (m *Metrics) RecordReplicationMode(ctx context.Context, mode string) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("ReplicationPass"),
			Dimensions: append(m.stationDimensions(), types.Dimension{
				Name:  aws.String("Mode"),
				Value: aws.String(mode),
			}),
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

// RecordError records error occurrences by type
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("Errors"),
			Dimensions: append(m.stationDimensions(), types.Dimension{
				Name:  aws.String("ErrorType"),
				Value: aws.String(errorType),
			}),
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

func (m *Metrics) stationDimensions() []types.Dimension {
	return []types.Dimension{
		{
			Name:  aws.String("StationID"),
			Value: aws.String(m.stationID),
		},
	}
}

func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		// Metrics never fail the operation they observe
		m.logger.Warn("Failed to send metrics", zap.Error(err))
	}
}
