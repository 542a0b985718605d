package cloud

import (
	"context"
	"time"

	ces "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ces/v1"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ces/v1/model"
)

// MetricSet is a fixed batch of metrics for one resource kind.
type MetricSet struct {
	Namespace string
	Dimension string
	Metrics   []string
	Window    time.Duration
	// Period is the aggregation period in seconds, "1" meaning raw data.
	Period string
}

// Metric sets offered by the console.
var (
	ECSMetrics = MetricSet{
		Namespace: "SYS.ECS",
		Dimension: "instance_id",
		Metrics:   []string{"cpu_util", "network_vm_connections", "network_vm_newconnections"},
		Window:    5 * time.Minute,
		Period:    "300",
	}
	NATMetrics = MetricSet{
		Namespace: "SYS.NAT",
		Dimension: "nat_gateway_id",
		Metrics: []string{
			"snat_connection", "inbound_bandwidth", "outbound_bandwidth",
			"inbound_traffic", "outbound_traffic", "inbound_bandwidth_ratio",
		},
		Window: time.Minute,
		Period: "1",
	}
	EVSMetrics = MetricSet{
		Namespace: "SYS.EVS",
		Dimension: "disk_name",
		Metrics: []string{
			"disk_device_read_bytes_rate", "disk_device_write_bytes_rate",
			"disk_device_read_requests_rate", "disk_device_queue_length",
			"disk_device_write_await", "disk_device_read_await",
			"disk_device_io_iops_qos_num",
		},
		Window: 5 * time.Minute,
		Period: "300",
	}
)

// Datapoint is one aggregated sample.
type Datapoint struct {
	Average   *float64 `json:"average"`
	Timestamp int64    `json:"timestamp"`
}

// MetricData is the series of one metric.
type MetricData struct {
	Namespace  string      `json:"namespace"`
	MetricName string      `json:"metric_name"`
	Unit       string      `json:"unit"`
	Datapoints []Datapoint `json:"datapoints"`
}

// MetricAPI wraps the Cloud Eye service.
type MetricAPI struct {
	c   *Client
	sdk *ces.CesClient
}

// Metrics wraps a CES service client.
func Metrics(c *Client) MetricAPI { return MetricAPI{c: c, sdk: ces.NewCesClient(c.hc)} }

type metricDimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type metricInfo struct {
	Namespace  string            `json:"namespace"`
	MetricName string            `json:"metric_name"`
	Dimensions []metricDimension `json:"dimensions"`
}

// Query fetches the averages of set for the resource id over the window
// ending at now.
func (a MetricAPI) Query(ctx context.Context, set MetricSet, id string, now time.Time) ([]MetricData, error) {
	if err := required(set.Dimension, id); err != nil {
		return nil, err
	}
	dims := []metricDimension{{Name: set.Dimension, Value: id}}
	metrics := make([]metricInfo, 0, len(set.Metrics))
	for _, name := range set.Metrics {
		metrics = append(metrics, metricInfo{Namespace: set.Namespace, MetricName: name, Dimensions: dims})
	}
	req := &model.BatchListMetricDataRequest{}
	err := withBody(req, map[string]any{
		"metrics": metrics,
		"from":    now.Add(-set.Window).UnixMilli(),
		"to":      now.UnixMilli(),
		"period":  set.Period,
		"filter":  "average",
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Metrics []MetricData `json:"metrics"`
	}
	err = a.c.do(ctx, "BatchListMetricData", func() (any, error) { return a.sdk.BatchListMetricData(req) }, &out)
	return out.Metrics, err
}
