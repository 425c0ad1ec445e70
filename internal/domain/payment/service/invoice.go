package service

import (
	"fmt"
	"sync/atomic"
	"time"
)

// lastInvoiceStamp 上一次开票使用的时间戳（毫秒）
// 同一毫秒内重复开票时递增，保证票号唯一且单调
var lastInvoiceStamp atomic.Int64

// nextInvoiceStamp 返回单调递增的开票时间戳
func nextInvoiceStamp(now time.Time) int64 {
	ms := now.UnixMilli()
	for {
		last := lastInvoiceStamp.Load()
		if ms <= last {
			ms = last + 1
		}
		if lastInvoiceStamp.CompareAndSwap(last, ms) {
			return ms
		}
	}
}

// invoiceNumber 票号格式 INV-{paymentID}-{stamp}
// 重复开票生成新票号，而不是报错
func invoiceNumber(paymentID string, now time.Time) string {
	return fmt.Sprintf("INV-%s-%d", paymentID, nextInvoiceStamp(now))
}
