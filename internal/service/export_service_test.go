package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
)

// ── helpers ──

func setupTestExportService() (ExportService, *mockRepos) {
	repo, mocks := newMockRepos()
	svc := NewExportService(repo, zap.NewNop())
	svc.(*exportService).now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, mocks
}

// ── ExportLocations ──

func TestExportService_ExportLocations(t *testing.T) {
	svc, mocks := setupTestExportService()
	root := createTestUser(mocks.users, "root@campus.edu", "password123", model.RoleSuperAdmin)
	loc := createTestLocation(mocks.locations, "Library", "Library Services")
	loc.CreatedBy = &root.UserID
	loc.Images = model.StringArray{"https://res.cloudinary.com/demo/a.jpg", "https://res.cloudinary.com/demo/b.jpg"}
	closed := createTestLocation(mocks.locations, "Old Hall", "Arts")
	closed.IsActive = false

	buf, filename, err := svc.ExportLocations(context.Background(), authz.SuperAdmin{ID: root.UserID})
	if err != nil {
		t.Fatalf("ExportLocations: %v", err)
	}
	if filename != "locations_20260301.xlsx" {
		t.Errorf("filename = %q", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][1] != "Name" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "Library" || rows[1][11] != "root@campus.edu" {
		t.Errorf("row = %v", rows[1])
	}
	if !strings.Contains(rows[1][6], "b.jpg") {
		t.Errorf("images cell = %q", rows[1][6])
	}
	if rows[2][10] != "no" {
		t.Errorf("inactive flag = %q", rows[2][10])
	}
}

func TestExportService_ExportLocations_Forbidden(t *testing.T) {
	svc, mocks := setupTestExportService()
	da := createTestUser(mocks.users, "da@campus.edu", "password123", model.RoleDepartmentAdmin)

	if _, _, err := svc.ExportLocations(context.Background(), deptAdminActor(da)); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("department admin: err = %v, want forbidden", err)
	}
	if _, _, err := svc.ExportLocations(context.Background(), nil); !errors.Is(err, pkgerrors.ErrUnauthorized) {
		t.Errorf("anonymous: err = %v, want unauthorized", err)
	}
}

// ── UploadService ──

type stubSigner struct{ folder string }

func (s *stubSigner) Sign(folder string) (*media.SignedUpload, error) {
	s.folder = folder
	return &media.SignedUpload{Timestamp: 1700000000, Signature: "sig", Folder: folder, CloudName: "demo", APIKey: "key"}, nil
}

func TestUploadService_Sign(t *testing.T) {
	signer := &stubSigner{}
	svc := NewUploadService(signer, zap.NewNop())

	signed, err := svc.Sign(context.Background(), authz.SuperAdmin{ID: "root"}, "locations/images")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed.Folder != "locations/images" || signer.folder != "locations/images" {
		t.Errorf("signed = %+v", signed)
	}

	if _, err := svc.Sign(context.Background(), authz.Visitor{ID: "v"}, ""); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("visitor: err = %v, want forbidden", err)
	}
}

func TestUploadService_Sign_NotConfigured(t *testing.T) {
	svc := NewUploadService(nil, zap.NewNop())

	_, err := svc.Sign(context.Background(), authz.SuperAdmin{ID: "root"}, "")
	if pkgerrors.KindOf(err) != pkgerrors.KindInternal || !errors.Is(err, media.ErrNotConfigured) {
		t.Errorf("err = %v, want internal wrapping ErrNotConfigured", err)
	}
}
