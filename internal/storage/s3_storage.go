package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appconfig "github.com/salyqtech/salyq-backend/config"
	"github.com/salyqtech/salyq-backend/pkg/logger"
)

// S3Archive — архив подписанных XML-выгрузок в S3. Ключи задаёт
// вызывающая сторона; повторная загрузка того же ключа безопасна.
type S3Archive struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Archive(cfg *appconfig.ArchiveConfig) *S3Archive {
	var awsCfg aws.Config
	var err error

	// при наличии явных ключей используются они, иначе — стандартная
	// цепочка источников учётных данных
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		}
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.Region),
		)
		if err != nil {
			awsCfg = aws.Config{Region: cfg.Region}
		}
	}

	return &S3Archive{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  cfg.Bucket,
		baseURL: cfg.BaseURL,
	}
}

// Upload кладёт документ в архив и возвращает его URL.
func (a *S3Archive) Upload(ctx context.Context, key string, payload []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/xml"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url := a.objectURL(key)
	logger.Debug("XML export archived", map[string]interface{}{
		"key": key,
		"url": url,
	})
	return url, nil
}

func (a *S3Archive) objectURL(key string) string {
	if a.baseURL != "" {
		return fmt.Sprintf("%s/%s", a.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.client.Options().Region, key)
}
