package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/league-scheduler-api/internal/dto"
	"github.com/noah-isme/league-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
)

type detailStub struct {
	detail *dto.LeagueScheduleDetail
	err    error
}

func (s detailStub) Get(ctx context.Context, id string) (*dto.LeagueScheduleDetail, error) {
	return s.detail, s.err
}

func sampleDetail() *dto.LeagueScheduleDetail {
	return &dto.LeagueScheduleDetail{
		ID:    "sch-1",
		Name:  "Spring League",
		Weeks: 3,
		Teams: []string{"ATL", "BOS", "CHI", "DAL"},
		Schedule: scheduler.ProjectedSchedule{
			1: {{"ATL", "BOS"}, {"CHI", "DAL"}},
			2: {{"ATL", "CHI"}, {"BOS", "DAL"}},
			3: {{"DAL", "ATL"}, {"BOS", "CHI"}},
		},
		Report: scheduler.Report{Teams: []scheduler.TeamReport{{Team: "ATL", Home: 1, Away: 2, MaxHomeStreak: 1, MaxAwayStreak: 2}}},
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(detailStub{detail: sampleDetail()}, nil, nil, nil)

	file, err := svc.Export(context.Background(), "sch-1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "Spring_League_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Week,Visitor,Home", lines[0])
	assert.Equal(t, "3,DAL,ATL", lines[5])
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(detailStub{detail: sampleDetail()}, nil, nil, nil)

	file, err := svc.Export(context.Background(), "sch-1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(detailStub{detail: sampleDetail()}, nil, nil, nil)

	_, err := svc.Export(context.Background(), "sch-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServicePropagatesLookupErrors(t *testing.T) {
	svc := NewExportService(detailStub{err: appErrors.Clone(appErrors.ErrNotFound, "league schedule not found")}, nil, nil, nil)

	_, err := svc.Export(context.Background(), "missing", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
