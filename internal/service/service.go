package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/jwt"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/metrics"
)

// TokenStore revokes tokens before their expiry. Backed by Redis; may be nil.
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// UploadSigner signs direct browser uploads.
type UploadSigner interface {
	Sign(folder string) (*media.SignedUpload, error)
}

// Deps are the collaborators services share.
type Deps struct {
	Config   *config.Config
	Repo     *repository.Repository
	JWT      *jwt.Manager
	Tokens   TokenStore
	Uploader media.Uploader
	Signer   UploadSigner
	Logger   *zap.Logger
}

// Service aggregates every service.
type Service struct {
	Auth       AuthService
	User       UserService
	Location   LocationService
	Department DepartmentService
	Upload     UploadService
	Export     ExportService
}

// NewService wires services from deps.
func NewService(d Deps) *Service {
	return &Service{
		Auth:       NewAuthService(d.Config, d.Repo, d.JWT, d.Tokens, d.Logger),
		User:       NewUserService(d.Config, d.Repo, d.Logger),
		Location:   NewLocationService(d.Config, d.Repo, d.Uploader, d.Logger),
		Department: NewDepartmentService(d.Repo, d.Logger),
		Upload:     NewUploadService(d.Signer, d.Logger),
		Export:     NewExportService(d.Repo, d.Logger),
	}
}

// authorize evaluates the policy and records the decision.
func authorize(actor authz.Actor, req authz.Request) error {
	err := authz.Authorize(actor, req)
	outcome := "allow"
	if err != nil {
		outcome = "deny"
	}
	metrics.AuthzDecisions.WithLabelValues(string(req.Action), outcome).Inc()
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func actorIDPtr(actor authz.Actor) *string {
	if actor == nil {
		return nil
	}
	id := actor.ActorID()
	return &id
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
