package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
)

var errMockDB = errors.New("mock db down")

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	order []string

	// staleExists makes ExistsByEmail always report false, as if another
	// request inserted the same email between check and write.
	staleExists bool
	lastLogins  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(u *model.User) *model.User {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	if u.AssignedLocations == nil {
		u.AssignedLocations = model.StringArray{}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.UserID] = u
	m.order = append(m.order, u.UserID)
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return &repository.DuplicateKeyError{Constraint: "uq_users_email", Field: "email"}
		}
	}
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	if m.staleExists {
		return false, nil
	}
	for _, u := range m.users {
		if u.Email == email && u.UserID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) List(_ context.Context, f repository.UserFilter) ([]model.User, int64, error) {
	var out []model.User
	for _, id := range m.order {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Department != "" && (u.Department == nil || !strings.EqualFold(*u.Department, f.Department)) {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !containsFold(u.Name, f.Search) && !containsFold(u.Email, f.Search) {
			continue
		}
		out = append(out, *u)
	}
	return paginate(out, f.Offset, f.Limit), int64(len(out)), nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, u := range m.users {
		if u.Email == user.Email && u.UserID != user.UserID {
			return &repository.DuplicateKeyError{Constraint: "uq_users_email", Field: "email"}
		}
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LastLogin = &at
	m.lastLogins++
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id string, active bool, updatedBy string) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsActive = active
	u.UpdatedBy = &updatedBy
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) CountActive(_ context.Context) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) CountActiveByRole(_ context.Context) ([]repository.GroupCount, error) {
	counts := make(map[string]int64)
	for _, u := range m.users {
		if u.IsActive {
			counts[u.Role]++
		}
	}
	return sortedCounts(counts), nil
}

func (m *mockUserRepo) CountByDepartment(_ context.Context) ([]repository.GroupCount, error) {
	counts := make(map[string]int64)
	for _, u := range m.users {
		if u.IsActive && u.Department != nil {
			counts[strings.ToLower(*u.Department)]++
		}
	}
	return sortedCounts(counts), nil
}

func (m *mockUserRepo) CountActiveInDepartment(_ context.Context, dept string) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.IsActive && u.Department != nil && strings.EqualFold(*u.Department, dept) {
			n++
		}
	}
	return n, nil
}

// ── Mock LocationRepository ──

type mockLocationRepo struct {
	locations map[string]*model.Location
	order     []string
	users     *mockUserRepo

	mediaUpdates int
	// beforeUpdate runs at the start of Update, standing in for a concurrent writer.
	beforeUpdate func()
}

func newMockLocationRepo(users *mockUserRepo) *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[string]*model.Location), users: users}
}

func (m *mockLocationRepo) add(l *model.Location) *model.Location {
	if l.LocationID == "" {
		l.LocationID = uuid.NewString()
	}
	if l.Images == nil {
		l.Images = model.StringArray{}
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	m.locations[l.LocationID] = l
	m.order = append(m.order, l.LocationID)
	return l
}

func (m *mockLocationRepo) withCreator(l model.Location) *model.Location {
	if l.CreatedBy != nil && m.users != nil {
		if u, ok := m.users.users[*l.CreatedBy]; ok {
			cp := *u
			l.Creator = &cp
		}
	}
	return &l
}

func (m *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	for _, l := range m.locations {
		if l.Name == loc.Name {
			return &repository.DuplicateKeyError{Constraint: "uq_locations_name", Field: "name"}
		}
	}
	m.add(loc)
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, id string) (*model.Location, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	if l, ok := m.locations[id]; ok {
		return m.withCreator(*l), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLocationRepo) ExistsByName(_ context.Context, name, excludeID string) (bool, error) {
	for _, l := range m.locations {
		if l.Name == name && l.LocationID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLocationRepo) List(_ context.Context, f repository.LocationFilter) ([]model.Location, int64, error) {
	var allowed map[string]bool
	if f.IDs != nil {
		allowed = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			allowed[id] = true
		}
	}

	var out []model.Location
	for _, id := range m.order {
		l, ok := m.locations[id]
		if !ok {
			continue
		}
		if allowed != nil && !allowed[id] {
			continue
		}
		if f.Department != "" && !strings.EqualFold(l.Department, f.Department) {
			continue
		}
		if f.IsActive != nil && l.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !containsFold(l.Name, f.Search) &&
			!containsFold(l.Description, f.Search) && !containsFold(l.Department, f.Search) {
			continue
		}
		out = append(out, *m.withCreator(*l))
	}
	return paginate(out, f.Offset, f.Limit), int64(len(out)), nil
}

func (m *mockLocationRepo) Update(_ context.Context, loc *model.Location, columns ...string) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	l, ok := m.locations[loc.LocationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, col := range columns {
		switch col {
		case "name":
			l.Name = loc.Name
		case "description":
			l.Description = loc.Description
		case "department":
			l.Department = loc.Department
		case "category":
			l.Category = loc.Category
		case "latitude":
			l.Latitude = loc.Latitude
		case "longitude":
			l.Longitude = loc.Longitude
		case "images":
			l.Images = append(model.StringArray{}, loc.Images...)
		case "audio":
			l.Audio = loc.Audio
		case "video":
			l.Video = loc.Video
		case "view360":
			l.View360 = loc.View360
		case "is_active":
			l.IsActive = loc.IsActive
		default:
			return fmt.Errorf("unknown column %q", col)
		}
	}
	l.UpdatedBy = loc.UpdatedBy
	return nil
}

func (m *mockLocationRepo) UpdateMedia(_ context.Context, id string, u repository.MediaUpdate, updatedBy string) error {
	l, ok := m.locations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if len(u.AppendImages) > 0 && u.MaxImages > 0 && len(l.Images)+len(u.AppendImages) > u.MaxImages {
		return repository.ErrImageLimit
	}
	l.Images = append(l.Images, u.AppendImages...)
	if u.Audio != nil {
		l.Audio = u.Audio
	}
	if u.Video != nil {
		l.Video = u.Video
	}
	if u.View360 != nil {
		l.View360 = u.View360
	}
	l.UpdatedBy = &updatedBy
	m.mediaUpdates++
	return nil
}

func (m *mockLocationRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.locations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.locations, id)
	if m.users != nil {
		for _, u := range m.users.users {
			kept := model.StringArray{}
			for _, a := range u.AssignedLocations {
				if a != id {
					kept = append(kept, a)
				}
			}
			u.AssignedLocations = kept
		}
	}
	return nil
}

func (m *mockLocationRepo) CountActive(_ context.Context) (int64, error) {
	var n int64
	for _, l := range m.locations {
		if l.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *mockLocationRepo) CountActiveByDepartment(_ context.Context) ([]repository.GroupCount, error) {
	counts := make(map[string]int64)
	for _, l := range m.locations {
		if l.IsActive {
			counts[l.Department]++
		}
	}
	return sortedCounts(counts), nil
}

func (m *mockLocationRepo) CountActiveInDepartment(_ context.Context, dept string) (int64, error) {
	var n int64
	for _, l := range m.locations {
		if l.IsActive && strings.EqualFold(l.Department, dept) {
			n++
		}
	}
	return n, nil
}

// ── Mock DepartmentRepository ──

type mockDepartmentRepo struct {
	depts map[string]*model.Department
	order []string
	users *mockUserRepo
}

func newMockDepartmentRepo(users *mockUserRepo) *mockDepartmentRepo {
	return &mockDepartmentRepo{depts: make(map[string]*model.Department), users: users}
}

func (m *mockDepartmentRepo) add(d *model.Department) *model.Department {
	if d.DepartmentID == "" {
		d.DepartmentID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	m.depts[d.DepartmentID] = d
	m.order = append(m.order, d.DepartmentID)
	return d
}

func (m *mockDepartmentRepo) withHead(d model.Department) *model.Department {
	d.Head = nil
	if d.HeadID != nil && m.users != nil {
		if u, ok := m.users.users[*d.HeadID]; ok {
			cp := *u
			d.Head = &cp
		}
	}
	return &d
}

func (m *mockDepartmentRepo) Create(_ context.Context, dept *model.Department) error {
	for _, d := range m.depts {
		if strings.EqualFold(d.Name, dept.Name) {
			return &repository.DuplicateKeyError{Constraint: "uq_departments_name", Field: "name"}
		}
	}
	m.add(dept)
	return nil
}

func (m *mockDepartmentRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	if d, ok := m.depts[id]; ok {
		return m.withHead(*d), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDepartmentRepo) ExistsByName(_ context.Context, name, excludeID string) (bool, error) {
	for _, d := range m.depts {
		if strings.EqualFold(d.Name, name) && d.DepartmentID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDepartmentRepo) List(_ context.Context, f repository.DepartmentFilter) ([]model.Department, int64, error) {
	var out []model.Department
	for _, id := range m.order {
		d, ok := m.depts[id]
		if !ok {
			continue
		}
		if f.IsActive != nil && d.IsActive != *f.IsActive {
			continue
		}
		if f.Search != "" && !containsFold(d.Name, f.Search) && !containsFold(d.Description, f.Search) {
			continue
		}
		out = append(out, *m.withHead(*d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f.Offset, f.Limit), int64(len(out)), nil
}

func (m *mockDepartmentRepo) Update(_ context.Context, dept *model.Department) error {
	if _, ok := m.depts[dept.DepartmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *dept
	cp.Head = nil
	m.depts[dept.DepartmentID] = &cp
	return nil
}

func (m *mockDepartmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.depts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.depts, id)
	return nil
}

func sortedCounts(counts map[string]int64) []repository.GroupCount {
	out := make([]repository.GroupCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, repository.GroupCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ── fixtures ──

type mockRepos struct {
	users       *mockUserRepo
	locations   *mockLocationRepo
	departments *mockDepartmentRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	m := &mockRepos{
		users:       users,
		locations:   newMockLocationRepo(users),
		departments: newMockDepartmentRepo(users),
	}
	return &repository.Repository{
		User:       m.users,
		Location:   m.locations,
		Department: m.departments,
	}, m
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

// checkUUID fails like PostgreSQL does when a uuid column is compared to
// malformed text.
func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("ERROR: invalid input syntax for type uuid: %q (SQLSTATE 22P02)", id)
	}
	return nil
}
