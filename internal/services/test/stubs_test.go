package services_test

import (
	"context"
	"sync"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ---- 共享测试桩 ----

type noopTxManager struct{}

type noopSession struct{}

func (noopSession) Tx() pgx.Tx               { return nil }
func (noopSession) Context() context.Context { return context.Background() }

func (noopTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

func (noopTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

type outboxRepoStub struct {
	mu       sync.Mutex
	messages []repositories.OutboxMessage
	err      error
}

func (s *outboxRepoStub) Enqueue(_ context.Context, _ txmanager.Session, msg repositories.OutboxMessage) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func messagesOfType(repo *outboxRepoStub, eventType string) []repositories.OutboxMessage {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var out []repositories.OutboxMessage
	for _, msg := range repo.messages {
		if msg.EventType == eventType {
			out = append(out, msg)
		}
	}
	return out
}

type progressRepoStub struct {
	mu      sync.Mutex
	records []*po.ProcessingProgress
	err     error
}

func (s *progressRepoStub) Upsert(_ context.Context, _ txmanager.Session, p *po.ProcessingProgress) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, p)
	return nil
}

func (s *progressRepoStub) ListByVideo(_ context.Context, _ txmanager.Session, videoID uuid.UUID) ([]*po.ProcessingProgress, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*po.ProcessingProgress, 0, len(s.records))
	for _, r := range s.records {
		if r.VideoID == videoID {
			out = append(out, r)
		}
	}
	return out, nil
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() log.Logger { return log.NewStdLogger(ioDiscard{}) }

func ptr(val string) *string { return &val }

func ptrInt64(val int64) *int64 { return &val }
