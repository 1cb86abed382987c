package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	promModel "github.com/prometheus/common/model"
)

// PrometheusClient queries the metrics backend for partner performance
// measurements.
type PrometheusClient struct {
	api v1.API
}

// NewPrometheusClient creates a client for the given address.
func NewPrometheusClient(address string) (*PrometheusClient, error) {
	c, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &PrometheusClient{api: v1.NewAPI(c)}, nil
}

// QueryScalar evaluates an instant query and returns the first sample value.
// found is false when the query matched no series.
func (c *PrometheusClient) QueryScalar(ctx context.Context, query string, ts time.Time) (float64, bool, error) {
	result, _, err := c.api.Query(ctx, query, ts)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query prometheus: %w", err)
	}
	switch v := result.(type) {
	case promModel.Vector:
		if len(v) == 0 {
			return 0, false, nil
		}
		return float64(v[0].Value), true, nil
	case *promModel.Scalar:
		return float64(v.Value), true, nil
	default:
		return 0, false, fmt.Errorf("unexpected result type: %T", result)
	}
}

// QueryRange evaluates a range query and returns the flattened sample values.
func (c *PrometheusClient) QueryRange(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]float64, error) {
	result, _, err := c.api.QueryRange(ctx, query, v1.Range{Start: start, End: end, Step: step})
	if err != nil {
		return nil, fmt.Errorf("failed to query prometheus: %w", err)
	}
	matrix, ok := result.(promModel.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}
	var values []float64
	for _, series := range matrix {
		for _, pair := range series.Values {
			values = append(values, float64(pair.Value))
		}
	}
	return values, nil
}
