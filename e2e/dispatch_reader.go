package e2e

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// DispatchReader reads back what the InfluxDB sink wrote for a run.
type DispatchReader struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewDispatchReader connects to a running InfluxDB instance.
func NewDispatchReader(url, org, bucket, token string) *DispatchReader {
	c := influxdb2.NewClient(url, token)
	return &DispatchReader{org: org, bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// DispatchSteps returns the dispatch_step rows of a run keyed by step label,
// one map of column to value per step.
func (r *DispatchReader) DispatchSteps(ctx context.Context, runID string) (map[int]map[string]float64, error) {
	flux := fmt.Sprintf(`from(bucket:%q)
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == "dispatch_step" and r.run_id == %q)`, r.bucket, runID)
	res, err := r.query.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	steps := make(map[int]map[string]float64)
	for res.Next() {
		rec := res.Record()
		label, ok := rec.ValueByKey("step").(string)
		if !ok {
			return nil, fmt.Errorf("record without step tag: %v", rec.Values())
		}
		step, err := strconv.Atoi(label)
		if err != nil {
			return nil, fmt.Errorf("step tag %q: %w", label, err)
		}
		v, ok := rec.Value().(float64)
		if !ok {
			return nil, fmt.Errorf("field %s of step %d is %T", rec.Field(), step, rec.Value())
		}
		if steps[step] == nil {
			steps[step] = make(map[string]float64)
		}
		steps[step][rec.Field()] = v
	}
	return steps, res.Err()
}

// SetupBucket ensures the organisation and bucket exist, creating them through
// the management API when missing.
func (r *DispatchReader) SetupBucket(ctx context.Context) error {
	orgAPI := r.client.OrganizationsAPI()
	org, err := orgAPI.FindOrganizationByName(ctx, r.org)
	if err != nil || org == nil {
		org, err = orgAPI.CreateOrganizationWithName(ctx, r.org)
		if err != nil {
			return fmt.Errorf("create org: %w", err)
		}
	}

	bucketAPI := r.client.BucketsAPI()
	buckets, err := bucketAPI.FindBucketsByOrgName(ctx, r.org)
	if err != nil {
		return err
	}
	if buckets != nil {
		for _, b := range *buckets {
			if b.Name == r.bucket {
				return nil
			}
		}
	}
	if _, err := bucketAPI.CreateBucketWithName(ctx, org, r.bucket); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Close releases the underlying client resources.
func (r *DispatchReader) Close() { r.client.Close() }
