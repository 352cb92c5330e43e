package gcs

import (
	"context"
	"path"

	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GCSClient archives generated reports in a bucket folder.
type GCSClient struct {
	Client     *storage.Client
	BucketName string
	FolderName string
}

func NewGCSClient(ctx context.Context, cfg config.GCSConfig, opts ...option.ClientOption) (*GCSClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSClient{
		Client:     client,
		BucketName: cfg.BucketName,
		FolderName: cfg.FolderName,
	}, nil
}

func (g *GCSClient) Close(ctx context.Context) {
	if g.Client == nil {
		return
	}
	if err := g.Client.Close(); err != nil {
		logger.CtxError(ctx, log_messages.ErrorClosingGCSClient, err)
		return
	}
	logger.CtxInfo(ctx, log_messages.GCSClientClosedSuccessfully)
}

// UploadReport writes content under the report folder. Existing objects are
// never overwritten; a second export on the same day fails with a
// precondition error.
func (g *GCSClient) UploadReport(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	objectName := path.Join(g.FolderName, name)
	object := g.Client.Bucket(g.BucketName).Object(objectName)

	writer := object.If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(content); err != nil {
		logger.CtxError(ctx, log_messages.ErrorUploadingToGCSBucket, err, zap.String("object", objectName))
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		logger.CtxError(ctx, log_messages.ErrorClosingGCSWriter, err, zap.String("object", objectName))
		return "", err
	}
	logger.CtxInfo(ctx, log_messages.UploadedToGCSBucket,
		zap.String("bucket", g.BucketName), zap.String("object", objectName))
	return objectName, nil
}
