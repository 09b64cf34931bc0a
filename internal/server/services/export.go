package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	sc "github.com/dmitrijs2005/gophvault/internal/server/config"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// exportLinkValidity is how long the presigned download link stays usable.
const exportLinkValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportResult locates an uploaded vault export.
type ExportResult struct {
	Key string
	URL string
}

type exportEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Ciphertext string    `json:"ciphertext"`
	ServiceURL string    `json:"serviceUrl,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CategoryID *string   `json:"categoryId,omitempty"`
	Strength   int       `json:"strength"`
	CreatedAt  time.Time `json:"createdAt"`
}

type exportDocument struct {
	UserID      string        `json:"userId"`
	ExportedAt  time.Time     `json:"exportedAt"`
	Credentials []exportEntry `json:"credentials"`
}

// ExportService uploads a user's credentials, still encrypted, to object
// storage and hands back a short-lived download link.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
	now         func() time.Time
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, logger logging.Logger) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: m,
		config:      cfg,
		logger:      logger.With("module", "export"),
		now:         time.Now,
	}
}

func exportStorageKey(userID string, d time.Time) string {
	return fmt.Sprintf("exports/%s/%d/%02d/%02d/%v.json", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExportService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Export writes the document and returns its key and a presigned GET URL.
func (s *ExportService) Export(ctx context.Context, userID string) (*ExportResult, error) {
	creds, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "credential list failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now().UTC()
	doc := exportDocument{UserID: userID, ExportedAt: now, Credentials: make([]exportEntry, 0, len(creds))}
	for _, c := range creds {
		doc.Credentials = append(doc.Credentials, exportEntry{
			ID:         c.ID,
			Name:       c.Name,
			Ciphertext: c.Ciphertext,
			ServiceURL: c.ServiceURL,
			Notes:      c.Notes,
			CategoryID: c.CategoryID,
			Strength:   c.Strength,
			CreatedAt:  c.CreatedAt,
		})
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, common.ErrorInternal
	}

	client, err := s.getClient(ctx)
	if err != nil {
		s.logger.Error(ctx, "s3 client setup failed", "error", err)
		return nil, common.ErrorInternal
	}

	bucket := s.config.S3Bucket
	key := exportStorageKey(userID, now)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		s.logger.Error(ctx, "export upload failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(exportLinkValidity))
	if err != nil {
		s.logger.Error(ctx, "export presign failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "vault exported", "user_id", userID, "credentials", len(creds), "key", key)
	return &ExportResult{Key: key, URL: req.URL}, nil
}
