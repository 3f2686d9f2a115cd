package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"bitbucket.org/mmdatafocus/menu_recon/config"
	"bitbucket.org/mmdatafocus/menu_recon/models"
	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

// NewGCSClient prefers Application Default Credentials. Set
// GCS_CREDENTIALS_JSON to use an explicit service account key instead.
func NewGCSClient(ctx context.Context, c config.StorageConfig) (*storage.Client, error) {
	if strings.TrimSpace(c.CredentialsJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	}
	return storage.NewClient(ctx)
}

// GCSStore uploads each report to gs://Bucket/Prefix/<file name>.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	encoder Encoder
}

func NewGCSStore(client *storage.Client, bucket, prefix string, enc Encoder) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), encoder: enc}
}

func (s *GCSStore) objectName(outletCode string) string {
	return objectName(s.prefix, FileName(outletCode, s.encoder.Format()))
}

func objectName(prefix, fileName string) string {
	if prefix == "" {
		return fileName
	}
	return path.Join(prefix, fileName)
}

// CheckBucket fails early when the bucket is missing or not accessible.
func (s *GCSStore) CheckBucket(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("%w: gcs bucket %q not found or not accessible: %w", utils.ErrorConnection, s.bucket, err)
	}
	return nil
}

func (s *GCSStore) Save(ctx context.Context, outletCode string, rows []models.ReconciliationRow) (string, error) {
	var buf bytes.Buffer
	if err := s.encoder.Encode(&buf, rows); err != nil {
		return "", err
	}

	name := s.objectName(outletCode)
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = s.encoder.ContentType()
	wc.Metadata = map[string]string{"outlet_code": outletCode}

	if _, err := wc.Write(buf.Bytes()); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("%w: upload %s: %w", utils.ErrorSerialization, name, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("%w: close writer for %s: %w", utils.ErrorSerialization, name, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}
