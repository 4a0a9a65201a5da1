package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
)

// CloudinaryStore uploads assets through the Cloudinary upload API.
type CloudinaryStore struct {
	cld     *cloudinary.Cloudinary
	timeout time.Duration
	logger  *zap.Logger
}

// NewCloudinaryStore builds a store from credentials.
func NewCloudinaryStore(cfg *config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryStore, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CloudinaryStore{cld: cld, timeout: timeout, logger: logger}, nil
}

// Upload sends r to Cloudinary and returns the secure URL.
func (s *CloudinaryStore) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       opts.Folder,
		ResourceType: opts.ResourceType,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload: empty url for %s", opts.Filename)
	}

	s.logger.Debug("media uploaded",
		zap.String("folder", opts.Folder),
		zap.String("file", opts.Filename),
		zap.String("url", res.SecureURL),
	)
	return res.SecureURL, nil
}

// SignedUpload is returned to clients uploading directly to Cloudinary.
type SignedUpload struct {
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	Folder    string `json:"folder"`
	CloudName string `json:"cloudName"`
	APIKey    string `json:"apiKey"`
}

// Signer produces upload signatures without contacting Cloudinary.
type Signer struct {
	cloudName string
	apiKey    string
	secret    string
	now       func() time.Time
}

// NewSigner builds a Signer. It returns ErrNotConfigured without credentials.
func NewSigner(cfg *config.CloudinaryConfig) (*Signer, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	return &Signer{
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		secret:    cfg.APISecret,
		now:       time.Now,
	}, nil
}

// DefaultFolder is used when the client does not name one.
const DefaultFolder = "locations"

// Sign signs folder and the current timestamp.
func (s *Signer) Sign(folder string) (*SignedUpload, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		folder = DefaultFolder
	}
	ts := s.now().Unix()

	params := url.Values{}
	params.Set("folder", folder)
	params.Set("timestamp", strconv.FormatInt(ts, 10))

	sig, err := api.SignParameters(params, s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign upload: %w", err)
	}

	return &SignedUpload{
		Timestamp: ts,
		Signature: sig,
		Folder:    folder,
		CloudName: s.cloudName,
		APIKey:    s.apiKey,
	}, nil
}
