package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfviewer/internal/document"
)

// S3Config configures the S3 store backend. AccessKey/SecretKey are optional;
// when empty the default credential chain applies. Endpoint is for
// S3-compatible services (MinIO and the like).
type S3Config struct {
	Bucket    string
	Region    string
	Prefix    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Store keeps each document as one object, optionally encrypted at rest
// with the same blob format the filesystem store uses.
type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
	bucket     string
	prefix     string
	cipher     *BlobCipher
}

func NewS3Store(ctx context.Context, cfg S3Config, cipher *BlobCipher) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		cipher:     cipher,
	}, nil
}

func (s *S3Store) key(id DocumentID) string {
	return s.prefix + string(id) + ".json"
}

func (s *S3Store) Save(ctx context.Context, id DocumentID, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if s.cipher != nil {
		if data, err = s.cipher.Seal(data); err != nil {
			return fmt.Errorf("encrypt document: %w", err)
		}
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	log.Debug().Str("id", string(id)).Str("bucket", s.bucket).Msg("document uploaded")
	return nil
}

func (s *S3Store) Load(ctx context.Context, id DocumentID) (*document.Document, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 download: %w", err)
	}

	data := buf.Bytes()
	if s.cipher != nil && IsEncrypted(data) {
		if data, err = s.cipher.Open(data); err != nil {
			return nil, fmt.Errorf("decrypt document: %w", err)
		}
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("id", string(id)).Msg("stored document is corrupt")
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *S3Store) Delete(ctx context.Context, id DocumentID) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}
