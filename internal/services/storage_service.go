// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/guonaihong/gout"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/importer"
	"github.com/javajoker/storefront-backend/internal/models"
)

// SourceFetcher opens the spreadsheet an import job points at.
type SourceFetcher interface {
	Open(ctx context.Context, sourceType models.ImportSourceType, source string) (*FetchedSource, error)
}

// FetchedSource is a fully buffered spreadsheet plus its detected format.
type FetchedSource struct {
	Name   string
	Format importer.Format
	Data   []byte
}

func (f *FetchedSource) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

type StorageService struct {
	s3Client   s3iface.S3API
	httpClient *http.Client
	config     *config.Config
}

type UploadResult struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

const maxImportFileSize = 50 * 1024 * 1024

var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

func NewStorageService(config *config.Config) (*StorageService, error) {
	s := &StorageService{
		httpClient: &http.Client{Timeout: config.Importer.FetchTimeout},
		config:     config,
	}

	if config.AWS.AccessKeyID == "" {
		// Without credentials s3:// sources are rejected
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	s.s3Client = s3.New(sess)
	return s, nil
}

// NewStorageServiceWithS3 is used when the S3 client is built elsewhere.
func NewStorageServiceWithS3(config *config.Config, client s3iface.S3API) *StorageService {
	return &StorageService{
		s3Client:   client,
		httpClient: &http.Client{Timeout: config.Importer.FetchTimeout},
		config:     config,
	}
}

// SaveUpload stores an uploaded spreadsheet under the upload dir and returns its path.
func (s *StorageService) SaveUpload(file multipart.File, header *multipart.FileHeader) (*UploadResult, error) {
	if header.Size > maxImportFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, header.Size)
	}

	if _, err := importer.DetectFormat(header.Filename); err != nil {
		return nil, fmt.Errorf("file type %s is not allowed: %w", filepath.Ext(header.Filename), err)
	}

	if err := os.MkdirAll(s.config.Importer.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	filename := s.generateFileName(header.Filename)
	dst := filepath.Join(s.config.Importer.UploadDir, filename)

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	written, err := io.Copy(out, io.LimitReader(file, maxImportFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	if written > maxImportFileSize {
		os.Remove(dst)
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, maxImportFileSize)
	}

	return &UploadResult{Path: dst, Name: header.Filename, Size: written}, nil
}

func (s *StorageService) Open(ctx context.Context, sourceType models.ImportSourceType, source string) (*FetchedSource, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("import source is empty")
	}

	switch sourceType {
	case models.ImportSourceUpload, models.ImportSourcePath:
		return s.openLocal(source)
	case models.ImportSourceURL:
		return s.openURL(ctx, source)
	case models.ImportSourceS3:
		return s.openS3(ctx, source)
	default:
		return nil, fmt.Errorf("unsupported import source type %q", sourceType)
	}
}

// ClassifySource infers the source type of a free-form source string.
func ClassifySource(source string) models.ImportSourceType {
	lower := strings.ToLower(strings.TrimSpace(source))
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return models.ImportSourceS3
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return models.ImportSourceURL
	default:
		return models.ImportSourcePath
	}
}

func (s *StorageService) openLocal(p string) (*FetchedSource, error) {
	format, err := importer.DetectFormat(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.Size() > maxImportFileSize {
		return nil, fmt.Errorf("%s: %w", p, ErrFileTooLarge)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}

	return &FetchedSource{Name: filepath.Base(p), Format: format, Data: data}, nil
}

func (s *StorageService) openURL(ctx context.Context, raw string) (*FetchedSource, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}

	format, err := importer.DetectFormat(u.Path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout())
	defer cancel()

	body := &cappedBuffer{limit: maxImportFileSize}
	var code int
	err = gout.New(s.httpClient).
		GET(u.String()).
		WithContext(ctx).
		BindBody(body).
		Code(&code).
		Do()
	if body.exceeded {
		return nil, fmt.Errorf("%s: %w", u.Redacted(), ErrFileTooLarge)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", u.Redacted(), err)
	}
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("failed to download %s: status %d", u.Redacted(), code)
	}

	return &FetchedSource{Name: path.Base(u.Path), Format: format, Data: body.Bytes()}, nil
}

// cappedBuffer aborts the download once more than limit bytes have arrived.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int64
	exceeded bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(p)) > b.limit {
		b.exceeded = true
		return 0, ErrFileTooLarge
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (s *StorageService) openS3(ctx context.Context, raw string) (*FetchedSource, error) {
	if s.s3Client == nil {
		return nil, fmt.Errorf("S3 client not configured")
	}

	bucket, key, err := parseS3URI(raw)
	if err != nil {
		return nil, err
	}

	format, err := importer.DetectFormat(key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout())
	defer cancel()

	out, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3 object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3 object %s/%s: %w", bucket, key, err)
	}

	return &FetchedSource{Name: path.Base(key), Format: format, Data: data}, nil
}

func (s *StorageService) fetchTimeout() time.Duration {
	if s.config.Importer.FetchTimeout > 0 {
		return s.config.Importer.FetchTimeout
	}
	return 60 * time.Second
}

func (s *StorageService) generateFileName(originalName string) string {
	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)
}

func parseS3URI(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" {
		return "", "", fmt.Errorf("invalid s3 source %q", raw)
	}

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 source %q needs a bucket and a key", raw)
	}
	return bucket, key, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImportFileSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, maxImportFileSize)
	}
	return data, nil
}
