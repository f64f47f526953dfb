package scene

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

// ErrArchiveDisabled is returned when no bucket is configured.
var ErrArchiveDisabled = errors.New("scene: archive disabled")

// ArchiveContentEncoding marks archive objects as snappy block-compressed JSON.
const ArchiveContentEncoding = "x-snappy"

// ArchiveConfig locates the archive bucket. Static credentials are optional;
// without them the default AWS credential chain applies.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Enabled reports whether a bucket is set.
func (c ArchiveConfig) Enabled() bool { return c.Bucket != "" }

// ObjectPutter is the slice of the S3 API the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg ArchiveConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("scene: load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Archive is the document written for one scene.
type Archive struct {
	ArchivedAt time.Time        `json:"archivedAt"`
	Scene      Scene            `json:"scene"`
	Runs       []simulation.Run `json:"runs,omitempty"`
}

// Archiver writes scene archives to a bucket.
type Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger logging.Logger
	now    func() time.Time
}

// NewArchiver creates an archiver writing under prefix in bucket.
func NewArchiver(client ObjectPutter, bucket, prefix string, logger logging.Logger) *Archiver {
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logging.OrNop(logger).With(logging.Component("scene_archiver")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Key is the object key for a scene archived at t.
func (a *Archiver) Key(sceneID string, t time.Time) string {
	return path.Join(a.prefix, "scenes", sceneID, t.Format("20060102T150405.000Z")+".json.sz")
}

// Archive uploads sc and its runs and returns the object key.
func (a *Archiver) Archive(ctx context.Context, sc Scene, runs []simulation.Run) (string, error) {
	if a == nil || a.client == nil || a.bucket == "" {
		return "", ErrArchiveDisabled
	}
	now := a.now()
	body, err := EncodeArchive(Archive{ArchivedAt: now, Scene: sc, Runs: runs})
	if err != nil {
		return "", storeErr("archive", sc.ID, err)
	}
	key := a.Key(sc.ID, now)

	timer := logging.StartTimer(a.logger, "scene archived", logging.SceneID(sc.ID), logging.String("key", key))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String(ArchiveContentEncoding),
		Metadata: map[string]string{
			"scene-id":   sc.ID,
			"project-id": sc.ProjectID,
		},
	})
	if err != nil {
		timer.EndError(err)
		return "", storeErr("archive", sc.ID, err)
	}
	timer.End(logging.Int("bytes", len(body)))
	return key, nil
}

// EncodeArchive renders an archive as snappy-compressed JSON.
func EncodeArchive(a Archive) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

// DecodeArchive reverses EncodeArchive.
func DecodeArchive(b []byte) (Archive, error) {
	raw, err := snappy.Decode(nil, b)
	if err != nil {
		return Archive{}, fmt.Errorf("scene: decompress archive: %w", err)
	}
	var a Archive
	if err := json.Unmarshal(raw, &a); err != nil {
		return Archive{}, fmt.Errorf("scene: decode archive: %w", err)
	}
	return a, nil
}
