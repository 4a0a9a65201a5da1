package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"
)

const exportSheet = "Locations"

var exportHeaders = []string{
	"ID", "Name", "Department", "Category", "Latitude", "Longitude",
	"Images", "Audio", "Video", "360 View", "Active", "Created By", "Created At",
}

// ExportService spreadsheet exports.
//
// The workbook is built in memory and returned as a buffer; the handler
// sets the download headers.
type ExportService interface {
	// ExportLocations writes every location, active or not, to an .xlsx workbook.
	ExportLocations(ctx context.Context, actor authz.Actor) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService creates an ExportService.
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

func (s *exportService) ExportLocations(ctx context.Context, actor authz.Actor) (*bytes.Buffer, string, error) {
	if err := authorize(actor, authz.Request{Action: authz.ActionExportLocations}); err != nil {
		return nil, "", err
	}

	locs, _, err := s.repo.Location.List(ctx, repository.LocationFilter{})
	if err != nil {
		s.logger.Error("list locations for export failed", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, "", pkgerrors.Internal(err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range exportHeaders {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, c, h)
	}
	last, _ := excelize.ColumnNumberToName(len(exportHeaders))
	f.SetCellStyle(exportSheet, "A1", last+"1", headerStyle)
	f.SetColWidth(exportSheet, "A", "A", 38)
	f.SetColWidth(exportSheet, "B", "C", 28)
	f.SetColWidth(exportSheet, "G", "J", 40)
	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for r := range locs {
		row := exportRow(&locs[r])
		if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", r+2), &row); err != nil {
			s.logger.Error("write export row failed", zap.Error(err))
			return nil, "", pkgerrors.Internal(err)
		}
	}
	if len(locs) > 0 {
		ref := fmt.Sprintf("A1:%s%d", last, len(locs)+1)
		if err := f.AutoFilter(exportSheet, ref, nil); err != nil {
			s.logger.Warn("set export autofilter failed", zap.Error(err))
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write export workbook failed", zap.Error(err))
		return nil, "", pkgerrors.Internal(err)
	}

	filename := fmt.Sprintf("locations_%s.xlsx", s.now().UTC().Format("20060102"))
	s.logger.Info("locations exported", zap.Int("rows", len(locs)), zap.String("actor_id", actor.ActorID()))
	return buf, filename, nil
}

func exportRow(l *model.Location) []interface{} {
	creator := ""
	if l.Creator != nil {
		creator = l.Creator.Email
	}
	active := "no"
	if l.IsActive {
		active = "yes"
	}
	return []interface{}{
		l.LocationID,
		l.Name,
		l.Department,
		l.Category,
		l.Latitude,
		l.Longitude,
		strings.Join(l.Images, "\n"),
		deref(l.Audio),
		deref(l.Video),
		deref(l.View360),
		active,
		creator,
		formatTime(l.CreatedAt),
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
