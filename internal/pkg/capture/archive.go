// Package capture archives the photos behind successful identifications so
// the Pokédex can show the trainer's own shot and place it on the capture
// map. Photos are downscaled before upload and geotagged from EXIF when the
// camera embedded coordinates.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	maxEdge     = 1280
	jpegQuality = 82
)

// Capture describes one archived photo.
type Capture struct {
	Key       string
	Latitude  *float64
	Longitude *float64
}

// Archiver stores capture photos in S3.
type Archiver struct {
	s3Client *s3.Client
	cfg      *Config
}

var globalArchiver *Archiver

// Setup initializes the process-wide archiver from env config. When the
// feature is disabled the archiver stays nil and captures are simply not
// archived.
func Setup(ctx context.Context) {
	cfg := LoadConfigFromEnv()
	if !cfg.IsEnabled() {
		log.Print("capture archive disabled")
		return
	}
	a, err := NewArchiver(ctx, cfg)
	if err != nil {
		log.Printf("capture archive setup failed: %v", err)
		return
	}
	globalArchiver = a
	log.Printf("capture archive enabled for bucket %s", cfg.Bucket)
}

// GetArchiver returns the process-wide archiver, or nil when disabled.
func GetArchiver() *Archiver {
	return globalArchiver
}

// NewArchiver creates an S3-backed archiver, or an error when the feature is
// disabled or misconfigured.
func NewArchiver(ctx context.Context, cfg *Config) (*Archiver, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("capture archive is disabled")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &Archiver{s3Client: s3Client, cfg: cfg}, nil
}

// Store downscales the photo, extracts EXIF GPS coordinates if present, and
// uploads the result under captures/<userID>/<uuid>.jpg. The original bytes
// are never persisted.
func (a *Archiver) Store(ctx context.Context, userID uint, photo []byte) (*Capture, error) {
	capt := &Capture{
		Key: fmt.Sprintf("captures/%d/%s.jpg", userID, uuid.NewString()),
	}
	capt.Latitude, capt.Longitude = extractGPS(photo)

	img, err := imaging.Decode(bytes.NewReader(photo), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode capture photo: %w", err)
	}
	img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode capture photo: %w", err)
	}

	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(capt.Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload capture photo: %w", err)
	}

	return capt, nil
}

// extractGPS reads EXIF coordinates. Most camera uploads carry them, screen
// captures and stripped images do not; both outcomes are fine.
func extractGPS(photo []byte) (*float64, *float64) {
	x, err := exif.Decode(bytes.NewReader(photo))
	if err != nil {
		return nil, nil
	}
	lat, lng, err := x.LatLong()
	if err != nil {
		return nil, nil
	}
	return &lat, &lng
}
