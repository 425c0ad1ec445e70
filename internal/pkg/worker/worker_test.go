package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"kindergarten_billing/internal/domain/audit/model"

	"github.com/stretchr/testify/assert"
)

// recordingAuditRepo 记录写入的审计日志，可注入前 N 次失败
type recordingAuditRepo struct {
	mu        sync.Mutex
	entries   []model.AuditLog
	failCount int
}

func (r *recordingAuditRepo) Create(entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCount > 0 {
		r.failCount--
		return errors.New("db unavailable")
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *recordingAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Fail(t, "condition not met within timeout")
}

func TestAuditWorkerPool(t *testing.T) {
	t.Run("Entries reach the repository", func(t *testing.T) {
		repo := &recordingAuditRepo{}
		pool := NewAuditWorkerPool(repo, 2, 16)
		pool.Start()

		for i := 0; i < 5; i++ {
			pool.AddTask(AuditTask{Entry: model.AuditLog{PaymentID: "pay-1", Action: "mark_as_paid"}})
		}

		waitFor(t, 2*time.Second, func() bool { return repo.count() == 5 })
	})

	t.Run("Transient failure is retried", func(t *testing.T) {
		repo := &recordingAuditRepo{failCount: 1}
		pool := NewAuditWorkerPool(repo, 1, 16)
		pool.Start()

		pool.AddTask(AuditTask{Entry: model.AuditLog{PaymentID: "pay-2", Action: "process_refund"}})

		// 第一次写入失败，进入重试队列后补写成功
		waitFor(t, 5*time.Second, func() bool { return repo.count() == 1 })
	})
}
