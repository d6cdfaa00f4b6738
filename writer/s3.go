package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	appconfig "scflow/config"
	"scflow/logger"
	"scflow/models"
)

// S3Store persists series partitions as parquet objects in one bucket.
// Object keys embed the starting record offset, so rewriting a batch after
// a crash overwrites the same object instead of duplicating rows.
type S3Store struct {
	client  *s3.Client
	bucket  string
	limiter *rate.Limiter
	version string
	log     *logger.Log
}

// NewS3Store configures the AWS SDK from the service config and validates
// that credentials resolve before returning.
func NewS3Store(ctx context.Context, cfg *appconfig.Config) (*S3Store, error) {
	log := logger.GetLogger()
	s3cfg := cfg.Storage.S3

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s3cfg.Region)}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		}
		o.UsePathStyle = s3cfg.PathStyle
	})

	rps := s3cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 50
	}
	burst := s3cfg.BurstSize
	if burst <= 0 {
		burst = rps
	}

	store := &S3Store{
		client:  client,
		bucket:  s3cfg.Bucket,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		version: cfg.Scflow.Version,
		log:     log,
	}

	log.WithComponent("s3_store").WithFields(logger.Fields{
		"bucket": s3cfg.Bucket,
		"region": s3cfg.Region,
	}).Debug("s3 store initialized")

	return store, nil
}

func (s *S3Store) PutTicks(ctx context.Context, symbol string, offset int64, recs []models.TickRecord) error {
	data, err := encodeTickParquet(recs)
	if err != nil {
		return err
	}
	return s.put(ctx, partitionKey(TickSeriesKey(symbol), offset), data, len(recs))
}

func (s *S3Store) PutDepth(ctx context.Context, symbol, date string, offset int64, recs []models.DepthRecord) error {
	data, err := encodeDepthParquet(recs)
	if err != nil {
		return err
	}
	return s.put(ctx, depthPartitionKey(DepthSeriesKey(symbol), date, offset), data, len(recs))
}

// PutBars replaces the whole bar series: bars are rebuilt from scratch each
// pass, so the series holds a single partition.
func (s *S3Store) PutBars(ctx context.Context, symbol, suffix string, bars []models.Bar) error {
	data, err := encodeBarParquet(bars)
	if err != nil {
		return err
	}
	return s.put(ctx, partitionKey(BarSeriesKey(symbol, suffix), 0), data, len(bars))
}

func (s *S3Store) put(ctx context.Context, key string, data []byte, rows int) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":   "parquet",
			"batch-id":       uuid.New().String(),
			"scflow-version": s.version,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", s.bucket, err)
	}

	s.log.WithComponent("s3_store").WithFields(logger.Fields{
		"key":        key,
		"rows":       rows,
		"size_bytes": len(data),
	}).Info("partition written")
	s.log.LogMetric("s3_store", "rows_written", int64(rows), "counter", logger.Fields{"key": key})
	return nil
}

func (s *S3Store) GetTicks(ctx context.Context, symbol string) ([]models.TickRecord, error) {
	var recs []models.TickRecord
	err := s.eachPartition(ctx, TickSeriesKey(symbol), func(data []byte) error {
		part, err := decodeTickParquet(data)
		if err != nil {
			return err
		}
		recs = append(recs, part...)
		return nil
	})
	return recs, err
}

func (s *S3Store) GetDepth(ctx context.Context, symbol, date string) ([]models.DepthRecord, error) {
	var recs []models.DepthRecord
	err := s.eachPartition(ctx, DepthSeriesKey(symbol)+"/"+date, func(data []byte) error {
		part, err := decodeDepthParquet(data)
		if err != nil {
			return err
		}
		recs = append(recs, part...)
		return nil
	})
	return recs, err
}

// eachPartition lists everything under the given key prefix and feeds each
// object's bytes to fn in key order.
func (s *S3Store) eachPartition(ctx context.Context, keyPrefix string, fn func(data []byte) error) error {
	prefix := keyPrefix + "/"
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list series %s: %w", keyPrefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".parquet") {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("get object %s: %w", key, err)
		}
		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return fmt.Errorf("read object %s: %w", key, err)
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Store) Close() error {
	return nil
}
