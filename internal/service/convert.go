package service

import (
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
)

func toUserResponse(u *model.User) dto.UserResponse {
	assigned := make([]string, len(u.AssignedLocations))
	copy(assigned, u.AssignedLocations)

	resp := dto.UserResponse{
		ID:                u.UserID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		Department:        u.Department,
		Faculty:           u.Faculty,
		AssignedLocations: assigned,
		IsActive:          u.IsActive,
		CreatedAt:         formatTime(u.CreatedAt),
		UpdatedAt:         formatTime(u.UpdatedAt),
	}
	if u.LastLogin != nil {
		s := formatTime(*u.LastLogin)
		resp.LastLogin = &s
	}
	return resp
}

func toUserRef(u *model.User) *dto.UserRef {
	if u == nil {
		return nil
	}
	return &dto.UserRef{ID: u.UserID, Name: u.Name, Email: u.Email}
}

func toLocationResponse(l *model.Location) dto.LocationResponse {
	images := make([]string, len(l.Images))
	copy(images, l.Images)

	return dto.LocationResponse{
		ID:          l.LocationID,
		Name:        l.Name,
		Description: l.Description,
		Department:  l.Department,
		Category:    l.Category,
		Coordinates: dto.CoordinatesResponse{Latitude: l.Latitude, Longitude: l.Longitude},
		Images:      images,
		Audio:       l.Audio,
		Video:       l.Video,
		View360:     l.View360,
		IsActive:    l.IsActive,
		CreatedBy:   toUserRef(l.Creator),
		CreatedAt:   formatTime(l.CreatedAt),
		UpdatedAt:   formatTime(l.UpdatedAt),
	}
}

func toDepartmentResponse(d *model.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:          d.DepartmentID,
		Name:        d.Name,
		Description: d.Description,
		Head:        toUserRef(d.Head),
		IsActive:    d.IsActive,
		CreatedAt:   formatTime(d.CreatedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
}

func toCounts(rows []repository.GroupCount) []dto.CountByKey {
	out := make([]dto.CountByKey, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.CountByKey{Key: r.Key, Count: r.Count})
	}
	return out
}
