package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"videogen-server/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignExpiry = 72 * time.Hour

// MinIOArchiver mirrors finished videos into a MinIO bucket.
type MinIOArchiver struct {
	client     *minio.Client
	bucket     string
	httpClient *http.Client
}

// InitMinIO returns nil when archiving is disabled in config.
func InitMinIO() *MinIOArchiver {
	cfg := config.AppConfig.MinIO
	if !cfg.Enabled {
		log.Println("[MinIO] archiving disabled")
		return nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatalf("failed to initialize MinIO: %v", err)
	}
	log.Println("[MinIO] connected")
	return NewMinIOArchiver(client, cfg.Bucket)
}

func NewMinIOArchiver(client *minio.Client, bucket string) *MinIOArchiver {
	return &MinIOArchiver{
		client:     client,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// ArchiveVideo downloads sourceURL and uploads it as objectName, returning
// a presigned GET URL for the copy.
func (a *MinIOArchiver) ArchiveVideo(ctx context.Context, sourceURL, objectName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}
	return a.upload(ctx, resp.Body, objectName, resp.ContentLength)
}

// upload streams reader to objectName. size may be -1 when unknown.
func (a *MinIOArchiver) upload(ctx context.Context, reader io.Reader, objectName string, size int64) (string, error) {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return "", fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("create bucket: %w", err)
		}
		log.Printf("[MinIO] bucket '%s' created", a.bucket)
	}

	_, err = a.client.PutObject(ctx, a.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(objectName),
	})
	if err != nil {
		return "", fmt.Errorf("upload to MinIO: %w", err)
	}

	presignedURL, err := a.client.PresignedGetObject(ctx, a.bucket, objectName, presignExpiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("presign URL: %w", err)
	}

	log.Printf("[MinIO] uploaded %s", objectName)
	return presignedURL.String(), nil
}

func contentTypeFor(objectName string) string {
	switch filepath.Ext(objectName) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
