package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
)

// UploadService signs direct browser uploads to object storage.
type UploadService interface {
	Sign(ctx context.Context, actor authz.Actor, folder string) (*media.SignedUpload, error)
}

type uploadService struct {
	signer UploadSigner
	logger *zap.Logger
}

// NewUploadService creates an UploadService. signer is nil when object
// storage is not configured.
func NewUploadService(signer UploadSigner, logger *zap.Logger) UploadService {
	return &uploadService{signer: signer, logger: logger}
}

func (s *uploadService) Sign(ctx context.Context, actor authz.Actor, folder string) (*media.SignedUpload, error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionSignUpload}); err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, pkgerrors.Internal(media.ErrNotConfigured)
	}

	signed, err := s.signer.Sign(folder)
	if err != nil {
		s.logger.Error("sign upload failed", zap.String("folder", folder), zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}
	return signed, nil
}
