package storage

import (
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

func TestRecordKey(t *testing.T) {
	cases := []struct {
		rec  domain.ScanRecord
		want string
	}{
		{domain.ScanRecord{ID: "abc", ScanType: domain.ScanTypeURL}, "raw/url/abc.json"},
		{domain.ScanRecord{ID: "f-1", ScanType: domain.ScanTypeFile}, "raw/file/f-1.json"},
	}
	for _, c := range cases {
		if got := RecordKey(&c.rec); got != c.want {
			t.Errorf("RecordKey(%+v) = %q, want %q", c.rec, got, c.want)
		}
	}
}

func TestObjectURL(t *testing.T) {
	s, err := newOffline("play.min.io", "scans", true)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.objectURL("raw/url/x.json"); got != "https://play.min.io/scans/raw/url/x.json" {
		t.Fatalf("objectURL = %q", got)
	}
}

// newOffline builds a Store without touching the bucket; minio.New does no I/O.
func newOffline(endpoint, bucket string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &Store{client: cli, bucketName: bucket}, nil
}
