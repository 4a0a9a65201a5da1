package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
)

// fakeUploader records uploads and fails for filenames in failFor.
type fakeUploader struct {
	mu      sync.Mutex
	calls   []media.UploadOptions
	failFor map[string]bool
}

func (f *fakeUploader) Upload(_ context.Context, r io.Reader, opts media.UploadOptions) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if f.failFor[opts.Filename] {
		return "", media.ErrStorageUnavailable
	}
	return "https://res.cloudinary.com/demo/" + opts.Folder + "/" + opts.Filename, nil
}

func setupTestLocationService() (LocationService, *mockRepos, *fakeUploader) {
	repo, mocks := newMockRepos()
	up := &fakeUploader{failFor: map[string]bool{}}
	return NewLocationService(testConfig(), repo, up, zap.NewNop()), mocks, up
}

func createTestLocation(repo *mockLocationRepo, name, dept string) *model.Location {
	return repo.add(&model.Location{
		Name:        name,
		Description: "A place on campus worth visiting",
		Department:  dept,
		Category:    model.CategoryAcademic,
		Latitude:    31.5,
		Longitude:   74.3,
		IsActive:    true,
	})
}

func memFile(field media.Field, name string, size int) MediaFile {
	data := bytes.Repeat([]byte("x"), size)
	return MediaFile{
		Field:    field,
		Filename: name,
		Size:     int64(size),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ── create ──

func TestLocationService_Create_Library(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	root := createTestUser(mocks.users, "root@campus.edu", "password123", model.RoleSuperAdmin)
	superAdmin := authz.SuperAdmin{ID: root.UserID}

	loc, err := svc.Create(context.Background(), superAdmin, &dto.CreateLocationRequest{
		Name:        "Library",
		Description: "Main university library",
		Department:  "Library Services",
		Coordinates: dto.Coordinates{Latitude: floatPtr(31.5), Longitude: floatPtr(74.3)},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !loc.IsActive {
		t.Error("new location should be active")
	}
	if loc.Category != model.CategoryAcademic {
		t.Errorf("category = %q, want academic", loc.Category)
	}
	if loc.CreatedBy == nil || loc.CreatedBy.ID != root.UserID {
		t.Errorf("createdBy = %+v, want %s", loc.CreatedBy, root.UserID)
	}
	if loc.Coordinates.Latitude != 31.5 || loc.Coordinates.Longitude != 74.3 {
		t.Errorf("coordinates = %+v", loc.Coordinates)
	}

	da := createTestUser(mocks.users, "da@campus.edu", "password123", model.RoleDepartmentAdmin)
	_, err = svc.Update(context.Background(), deptAdminActor(da), loc.ID,
		&dto.UpdateLocationRequest{Name: strPtr("Library2")})
	if !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Fatalf("unassigned department admin: err = %v, want forbidden", err)
	}
	if mocks.locations.locations[loc.ID].Name != "Library" {
		t.Error("location renamed despite denial")
	}
}

func TestLocationService_Create_NotSuperAdmin(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	da := createTestUser(mocks.users, "da@campus.edu", "password123", model.RoleDepartmentAdmin)

	req := &dto.CreateLocationRequest{
		Name: "Gym", Description: "Sports complex building",
		Department:  "Computer Science",
		Coordinates: dto.Coordinates{Latitude: floatPtr(1), Longitude: floatPtr(2)},
	}
	if _, err := svc.Create(context.Background(), deptAdminActor(da), req); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("department admin: err = %v, want forbidden", err)
	}
	if _, err := svc.Create(context.Background(), authz.Visitor{ID: "v"}, req); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("visitor: err = %v, want forbidden", err)
	}
	if len(mocks.locations.locations) != 0 {
		t.Error("no location should be stored")
	}
}

func TestLocationService_Create_DuplicateName(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	createTestLocation(mocks.locations, "Library", "Library Services")

	_, err := svc.Create(context.Background(), authz.SuperAdmin{ID: "root"}, &dto.CreateLocationRequest{
		Name: "Library", Description: "Another library entry",
		Department:  "Library Services",
		Coordinates: dto.Coordinates{Latitude: floatPtr(0), Longitude: floatPtr(0)},
	})
	appErr, ok := pkgerrors.As(err)
	if !ok || appErr.Kind != pkgerrors.KindConflict || appErr.Fields[0].Field != "name" {
		t.Fatalf("expected name conflict, got %v", err)
	}
}

// ── update ──

func TestLocationService_Update_DepartmentAdmin(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	assigned := createTestLocation(mocks.locations, "Lab A", "Computer Science")
	other := createTestLocation(mocks.locations, "Lab B", "Computer Science")
	da := createTestUser(mocks.users, "da@campus.edu", "password123", model.RoleDepartmentAdmin)
	actor := deptAdminActor(da, assigned.LocationID)

	resp, err := svc.Update(context.Background(), actor, assigned.LocationID,
		&dto.UpdateLocationRequest{Name: strPtr("Lab A1")})
	if err != nil {
		t.Fatalf("assigned update: %v", err)
	}
	if resp.Name != "Lab A1" {
		t.Errorf("name = %q", resp.Name)
	}

	if _, err := svc.Update(context.Background(), actor, other.LocationID,
		&dto.UpdateLocationRequest{Name: strPtr("Lab B1")}); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("unassigned: err = %v, want forbidden", err)
	}

	if _, err := svc.Update(context.Background(), actor, assigned.LocationID,
		&dto.UpdateLocationRequest{Department: strPtr("Physics")}); !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("department change: err = %v, want forbidden", err)
	}
	if mocks.locations.locations[assigned.LocationID].Department != "Computer Science" {
		t.Error("department changed despite denial")
	}

	// echoing the current department is not a change
	if _, err := svc.Update(context.Background(), actor, assigned.LocationID,
		&dto.UpdateLocationRequest{Department: strPtr("Computer Science")}); err != nil {
		t.Errorf("unchanged department: %v", err)
	}
}

func TestLocationService_Update_SuperAdminMovesDepartment(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	loc := createTestLocation(mocks.locations, "Hall", "Computer Science")

	resp, err := svc.Update(context.Background(), authz.SuperAdmin{ID: "root"}, loc.LocationID,
		&dto.UpdateLocationRequest{
			Department:  strPtr("Physics"),
			Coordinates: &dto.Coordinates{Latitude: floatPtr(-10), Longitude: floatPtr(20)},
		})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.Department != "Physics" || resp.Coordinates.Latitude != -10 {
		t.Errorf("unexpected %+v", resp)
	}
}

func TestLocationService_Update_NotFound(t *testing.T) {
	svc, _, _ := setupTestLocationService()

	_, err := svc.Update(context.Background(), authz.SuperAdmin{ID: "root"}, uuid.NewString(), &dto.UpdateLocationRequest{})
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLocationService_Update_KeepsConcurrentImages(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	loc := createTestLocation(mocks.locations, "Museum", "Arts")
	loc.Images = model.StringArray{"https://res.cloudinary.com/demo/a.jpg"}

	mocks.locations.beforeUpdate = func() {
		_ = mocks.locations.UpdateMedia(context.Background(), loc.LocationID,
			repository.MediaUpdate{AppendImages: []string{"https://res.cloudinary.com/demo/b.jpg"}}, "root")
	}

	resp, err := svc.Update(context.Background(), authz.SuperAdmin{ID: "root"}, loc.LocationID,
		&dto.UpdateLocationRequest{Name: strPtr("Museum of Art")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.Name != "Museum of Art" {
		t.Errorf("name = %q", resp.Name)
	}
	if len(resp.Images) != 2 {
		t.Errorf("images = %v, want the concurrently appended image kept", resp.Images)
	}
}

func TestLocationService_MalformedID(t *testing.T) {
	svc, _, _ := setupTestLocationService()
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "abc"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("GetByID: err = %v, want not found", err)
	}
	if err := svc.Delete(ctx, authz.SuperAdmin{ID: "root"}, "abc"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("Delete: err = %v, want not found", err)
	}
}

// ── delete ──

func TestLocationService_Delete_RemovesAssignments(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	loc := createTestLocation(mocks.locations, "Old Hall", "Computer Science")
	da := createTestUser(mocks.users, "da@campus.edu", "password123", model.RoleDepartmentAdmin)
	da.AssignedLocations = model.StringArray{loc.LocationID}

	if err := svc.Delete(context.Background(), deptAdminActor(da, loc.LocationID), loc.LocationID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(mocks.users.users[da.UserID].AssignedLocations) != 0 {
		t.Error("assignment should be removed with the location")
	}
}

// ── list ──

func TestLocationService_List_Pagination(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	for i := 0; i < 12; i++ {
		createTestLocation(mocks.locations, fmt.Sprintf("Place %02d", i), "Arts")
	}
	inactive := createTestLocation(mocks.locations, "Closed", "Arts")
	inactive.IsActive = false

	page, err := svc.List(context.Background(), nil, &dto.LocationListRequest{
		PaginationRequest: dto.PaginationRequest{Page: 2, Limit: 5},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 5 {
		t.Errorf("items = %d, want 5", len(page.Items))
	}
	p := page.Pagination
	if p.Total != 12 || p.Pages != 3 || p.Page != 2 || p.Limit != 5 {
		t.Errorf("pagination = %+v", p)
	}
}

func TestLocationService_List_Search(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	createTestLocation(mocks.locations, "Central Library", "Library Services")
	createTestLocation(mocks.locations, "Cafeteria", "Dining")

	page, err := svc.List(context.Background(), nil, &dto.LocationListRequest{Search: "LIBRARY"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Pagination.Total != 1 || page.Items[0].Name != "Central Library" {
		t.Errorf("unexpected result %+v", page)
	}
}

func TestLocationService_ByDepartment(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	createTestLocation(mocks.locations, "A", "Computer Science")
	createTestLocation(mocks.locations, "B", "computer science")
	createTestLocation(mocks.locations, "C", "Physics")

	locs, err := svc.ByDepartment(context.Background(), "COMPUTER SCIENCE")
	if err != nil {
		t.Fatalf("ByDepartment: %v", err)
	}
	if len(locs) != 2 {
		t.Errorf("got %d locations, want 2", len(locs))
	}
}

func TestLocationService_Managed(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	a := createTestLocation(mocks.locations, "A", "Computer Science")
	createTestLocation(mocks.locations, "B", "Computer Science")
	da := createTestUser(mocks.users, "da@campus.edu", "password123", model.RoleDepartmentAdmin)

	page, err := svc.Managed(context.Background(), deptAdminActor(da, a.LocationID), &dto.LocationListRequest{})
	if err != nil {
		t.Fatalf("Managed: %v", err)
	}
	if page.Pagination.Total != 1 || page.Items[0].ID != a.LocationID {
		t.Errorf("managed = %+v", page)
	}

	page, err = svc.Managed(context.Background(), deptAdminActor(da), &dto.LocationListRequest{})
	if err != nil {
		t.Fatalf("Managed: %v", err)
	}
	if page.Pagination.Total != 0 {
		t.Errorf("no assignments should manage nothing, got %d", page.Pagination.Total)
	}

	page, err = svc.Managed(context.Background(), authz.SuperAdmin{ID: "root"}, &dto.LocationListRequest{})
	if err != nil {
		t.Fatalf("Managed: %v", err)
	}
	if page.Pagination.Total != 2 {
		t.Errorf("super admin manages %d, want 2", page.Pagination.Total)
	}
}

func TestLocationService_Stats(t *testing.T) {
	svc, mocks, _ := setupTestLocationService()
	createTestLocation(mocks.locations, "A", "Arts")
	createTestLocation(mocks.locations, "B", "Arts")
	createTestLocation(mocks.locations, "C", "Physics")

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalLocations != 3 || stats.DepartmentDistribution[0].Key != "Arts" {
		t.Errorf("stats = %+v", stats)
	}
}

// ── upload ──

func TestLocationService_UploadMedia(t *testing.T) {
	svc, mocks, up := setupTestLocationService()
	loc := createTestLocation(mocks.locations, "Museum", "Arts")

	resp, err := svc.UploadMedia(context.Background(), authz.SuperAdmin{ID: "root"}, loc.LocationID, []MediaFile{
		memFile(media.FieldImages, "front.jpg", 10),
		memFile(media.FieldImages, "back.png", 10),
		memFile(media.FieldAudio, "guide.mp3", 10),
		memFile(media.FieldView360, "pano.jpg", 10),
	})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if len(up.calls) != 4 {
		t.Errorf("uploads = %d, want 4", len(up.calls))
	}
	if len(resp.Location.Images) != 2 || resp.Location.Audio == nil || resp.Location.View360 == nil {
		t.Errorf("location media not updated: %+v", resp.Location)
	}
	if resp.Location.Video != nil {
		t.Error("video should be untouched")
	}
	if len(resp.Uploaded["images"]) != 2 {
		t.Errorf("uploaded = %+v", resp.Uploaded)
	}
	for _, c := range up.calls {
		if c.Filename == "guide.mp3" && c.ResourceType != "video" {
			t.Errorf("audio resource type = %q, want video", c.ResourceType)
		}
	}
}

func TestLocationService_UploadMedia_ImageCap(t *testing.T) {
	svc, mocks, up := setupTestLocationService()
	loc := createTestLocation(mocks.locations, "Museum", "Arts")
	for i := 0; i < maxLocationImages-1; i++ {
		loc.Images = append(loc.Images, fmt.Sprintf("https://res.cloudinary.com/demo/%d.jpg", i))
	}

	_, err := svc.UploadMedia(context.Background(), authz.SuperAdmin{ID: "root"}, loc.LocationID, []MediaFile{
		memFile(media.FieldImages, "one.jpg", 10),
		memFile(media.FieldImages, "two.jpg", 10),
	})
	appErr, ok := pkgerrors.As(err)
	if !ok || appErr.Kind != pkgerrors.KindValidation || appErr.Fields[0].Field != "images" {
		t.Fatalf("expected images validation error, got %v", err)
	}
	if len(up.calls) != 0 {
		t.Errorf("uploads = %d, want none", len(up.calls))
	}
	if len(mocks.locations.locations[loc.LocationID].Images) != maxLocationImages-1 {
		t.Error("stored images should be unchanged")
	}

	if _, err := svc.UploadMedia(context.Background(), authz.SuperAdmin{ID: "root"}, loc.LocationID, []MediaFile{
		memFile(media.FieldImages, "last.jpg", 10),
	}); err != nil {
		t.Fatalf("last image: %v", err)
	}
}

func TestLocationService_UploadMedia_PartialFailure(t *testing.T) {
	svc, mocks, up := setupTestLocationService()
	loc := createTestLocation(mocks.locations, "Museum", "Arts")
	up.failFor["broken.jpg"] = true

	_, err := svc.UploadMedia(context.Background(), authz.SuperAdmin{ID: "root"}, loc.LocationID, []MediaFile{
		memFile(media.FieldImages, "ok.jpg", 10),
		memFile(media.FieldImages, "broken.jpg", 10),
	})
	appErr, ok := pkgerrors.As(err)
	if !ok || appErr.Kind != pkgerrors.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(appErr.Fields) != 1 || !strings.Contains(appErr.Fields[0].Message, "broken.jpg") {
		t.Errorf("fields = %+v", appErr.Fields)
	}

	stored := mocks.locations.locations[loc.LocationID]
	if len(stored.Images) != 1 || !strings.HasSuffix(stored.Images[0], "ok.jpg") {
		t.Errorf("successful upload should persist, images = %v", stored.Images)
	}
}

func TestLocationService_UploadMedia_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		files []MediaFile
		field string
	}{
		{"no files", nil, "files"},
		{"bad extension", []MediaFile{memFile(media.FieldAudio, "song.exe", 1)}, "audio"},
		{"too large", []MediaFile{memFile(media.FieldVideo, "clip.mp4", 2<<20)}, "video"},
		{"too many images", []MediaFile{
			memFile(media.FieldImages, "1.jpg", 1), memFile(media.FieldImages, "2.jpg", 1),
			memFile(media.FieldImages, "3.jpg", 1), memFile(media.FieldImages, "4.jpg", 1),
			memFile(media.FieldImages, "5.jpg", 1), memFile(media.FieldImages, "6.jpg", 1),
		}, "images"},
		{"two videos", []MediaFile{memFile(media.FieldVideo, "a.mp4", 1), memFile(media.FieldVideo, "b.mp4", 1)}, "video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mocks, up := setupTestLocationService()
			loc := createTestLocation(mocks.locations, "Museum", "Arts")

			_, err := svc.UploadMedia(context.Background(), authz.SuperAdmin{ID: "root"}, loc.LocationID, tt.files)
			appErr, ok := pkgerrors.As(err)
			if !ok || appErr.Kind != pkgerrors.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if appErr.Fields[0].Field != tt.field {
				t.Errorf("field = %s, want %s", appErr.Fields[0].Field, tt.field)
			}
			if len(up.calls) != 0 {
				t.Error("nothing should be uploaded")
			}
		})
	}
}

func TestLocationService_UploadMedia_Unassigned(t *testing.T) {
	svc, mocks, up := setupTestLocationService()
	loc := createTestLocation(mocks.locations, "Museum", "Arts")
	da := createTestUser(mocks.users, "da@campus.edu", "password123", model.RoleDepartmentAdmin)

	_, err := svc.UploadMedia(context.Background(), deptAdminActor(da), loc.LocationID,
		[]MediaFile{memFile(media.FieldImages, "a.jpg", 1)})
	if !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(up.calls) != 0 {
		t.Error("nothing should be uploaded")
	}
}
