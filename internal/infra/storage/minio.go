package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

// Store arsip raw response reputation ke bucket MinIO/S3.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// Ping cek bucket arsip masih bisa dijangkau.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("storage: bucket %s: %w", s.bucketName, err)
	}
	if !exists {
		return fmt.Errorf("storage: bucket %s missing", s.bucketName)
	}
	return nil
}

// RecordKey object key untuk raw payload satu scan: raw/{type}/{id}.json
func RecordKey(r *domain.ScanRecord) string {
	return fmt.Sprintf("raw/%s/%s.json", strings.ToLower(string(r.ScanType)), r.ID)
}

// ArchiveRecord upload raw response dari record yang sudah tersimpan.
// Returns the object URL (public only if the bucket is public).
func (s *Store) ArchiveRecord(ctx context.Context, r *domain.ScanRecord) (string, error) {
	if r == nil || r.ID == "" {
		return "", errors.New("storage: record without id")
	}
	body := r.RawResponse
	if len(body) == 0 {
		body = []byte("{}")
	}
	key := RecordKey(r)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"scan-type": string(r.ScanType),
			"status":    string(r.Status),
		},
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *Store) objectURL(key string) string {
	scheme := "http"
	if s.client.EndpointURL().Scheme == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucketName, key)
}
