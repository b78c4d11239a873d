package objstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/linemk/ekicker-shop/internal/config"
)

// FileStore абстрагирует объектное хранилище: загрузка блоба по ключу
// с возвратом публичной ссылки. В тестах подменяется фейком
type FileStore interface {
	Upload(ctx context.Context, folder, filename, contentType string, body io.Reader) (string, error)
}

type s3Store struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3Store настраивает клиент S3 по конфигурации приложения
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &s3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Upload кладет файл под ключом <folder>/<unix>_<filename>.
// Префикс с таймстемпом исключает перезапись одноименных файлов
func (s *s3Store) Upload(ctx context.Context, folder, filename, contentType string, body io.Reader) (string, error) {
	key := fmt.Sprintf("%s/%d_%s", folder, time.Now().Unix(), filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	return url, nil
}
