package worker

import (
	"log"
	"time"

	"kindergarten_billing/internal/domain/audit/model"
	"kindergarten_billing/internal/domain/audit/repository"
	"kindergarten_billing/pkg/metrics"
)

// AuditTask 待落库的审计日志
type AuditTask struct {
	Entry model.AuditLog
	Retry int // 重试次数
}

// AuditWorkerPool 异步审计日志写入池
// 业务侧 fire-and-forget，写入失败进入重试队列，不影响缴费状态变更
type AuditWorkerPool struct {
	TaskQueue  chan AuditTask
	RetryQueue chan AuditTask // 重试队列
	Repo       repository.AuditRepository
	WorkerNum  int
	MaxRetry   int // 最大重试次数
}

func NewAuditWorkerPool(repo repository.AuditRepository, workerNum int, bufferSize int) *AuditWorkerPool {
	return &AuditWorkerPool{
		TaskQueue:  make(chan AuditTask, bufferSize),
		RetryQueue: make(chan AuditTask, bufferSize/2),
		Repo:       repo,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
	}
}

func (p *AuditWorkerPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	// 启动重试处理协程
	go p.retryWorker()
	log.Printf("Audit worker pool started with %d workers", p.WorkerNum)
}

func (p *AuditWorkerPool) worker(id int) {
	for task := range p.TaskQueue {
		metrics.GetGlobalCollector().SetAuditQueueDepth(len(p.TaskQueue))

		if err := p.Repo.Create(&task.Entry); err != nil {
			log.Printf("[AuditWorker %d] Failed to write audit log (PaymentID: %s, Action: %s): %v",
				id, task.Entry.PaymentID, task.Entry.Action, err)

			// 如果未达到最大重试次数，加入重试队列
			if task.Retry < p.MaxRetry {
				task.Retry++
				select {
				case p.RetryQueue <- task:
				default:
					log.Printf("[AuditWorker %d] Retry queue full, audit entry dropped: %+v", id, task.Entry)
					p.logFailedTask(task, err)
				}
			} else {
				log.Printf("[AuditWorker %d] Audit entry exceeded max retries, dropped: %+v", id, task.Entry)
				p.logFailedTask(task, err)
			}
		}
	}
}

func (p *AuditWorkerPool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * time.Second)

		select {
		case p.TaskQueue <- task:
		default:
			log.Printf("[AuditRetryWorker] Main queue full, audit entry dropped: %+v", task.Entry)
			p.logFailedTask(task, nil)
		}
	}
}

func (p *AuditWorkerPool) logFailedTask(task AuditTask, err error) {
	// 审计日志属于尽力而为：最终失败只留一条系统日志供对账排查
	log.Printf("[AuditDeadLetter] Entry failed permanently: PaymentID=%s, Action=%s, Error=%v",
		task.Entry.PaymentID, task.Entry.Action, err)
}

// AddTask 投递审计日志，队列满时丢弃并记录
func (p *AuditWorkerPool) AddTask(task AuditTask) {
	select {
	case p.TaskQueue <- task:
		metrics.GetGlobalCollector().SetAuditQueueDepth(len(p.TaskQueue))
	default:
		log.Printf("Audit worker pool queue full, dropping entry: %+v", task.Entry)
		p.logFailedTask(task, nil)
	}
}
