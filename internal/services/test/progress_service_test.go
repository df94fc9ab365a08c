package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/google/uuid"
)

func TestProgressService_ClampsPercent(t *testing.T) {
	repo := &progressRepoStub{}
	svc := services.NewProgressService(repo, testLogger())
	videoID := uuid.New()

	svc.Record(context.Background(), services.RecordProgressInput{VideoID: videoID, Stage: po.StageProbe, Percent: -10})
	svc.Record(context.Background(), services.RecordProgressInput{VideoID: videoID, Stage: po.StageThumbnail, Percent: 150})

	if len(repo.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(repo.records))
	}
	if repo.records[0].Percent != 0 {
		t.Fatalf("expected negative percent clamped to 0, got %d", repo.records[0].Percent)
	}
	if repo.records[1].Percent != 100 {
		t.Fatalf("expected overflow percent clamped to 100, got %d", repo.records[1].Percent)
	}
}

func TestProgressService_TruncatesLongMessage(t *testing.T) {
	repo := &progressRepoStub{}
	svc := services.NewProgressService(repo, testLogger())

	svc.Record(context.Background(), services.RecordProgressInput{
		VideoID: uuid.New(),
		Stage:   po.StageTranscode,
		Percent: 100,
		Message: strings.Repeat("x", 600),
	})

	if len(repo.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(repo.records))
	}
	if repo.records[0].Message == nil || len(*repo.records[0].Message) != 500 {
		t.Fatalf("expected message truncated to 500 chars, got %+v", repo.records[0].Message)
	}
}

func TestProgressService_UpsertFailureAbsorbed(t *testing.T) {
	repo := &progressRepoStub{err: errors.New("db down")}
	svc := services.NewProgressService(repo, testLogger())

	svc.Record(context.Background(), services.RecordProgressInput{VideoID: uuid.New(), Stage: po.StagePublish, Percent: 50})
}

func TestProgressService_ListFiltersByVideo(t *testing.T) {
	repo := &progressRepoStub{}
	svc := services.NewProgressService(repo, testLogger())
	videoID := uuid.New()

	svc.Record(context.Background(), services.RecordProgressInput{VideoID: videoID, Stage: po.StageProbe, Percent: 100})
	svc.Record(context.Background(), services.RecordProgressInput{VideoID: uuid.New(), Stage: po.StageProbe, Percent: 100})

	records, err := svc.List(context.Background(), videoID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record for video, got %d", len(records))
	}
}
