package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// 并发退费压测：对同一张缴费单同时发起大量退费请求，
// 验证行锁下累计退款永远不会超过应缴金额
var (
	baseURL    = flag.String("base-url", "http://localhost:8080", "服务地址")
	paymentID  = flag.String("payment", "", "已结清的缴费单 ID")
	token      = flag.String("token", os.Getenv("BILLING_ADMIN_TOKEN"), "管理员 JWT")
	workers    = flag.Int("workers", 200, "并发请求数")
	refundEach = flag.String("amount", "100", "每笔退费金额")
)

var httpClient *http.Client

func init() {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

func main() {
	flag.Parse()
	if *paymentID == "" || *token == "" {
		fmt.Println("usage: stress_tool -payment <id> -token <jwt> [-workers N] [-amount 100]")
		os.Exit(1)
	}

	fmt.Printf("开始压测：%d 个并发请求对缴费单 %s 各退 %s ...\n", *workers, *paymentID, *refundEach)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	rejectedCount := 0
	errorCount := 0

	start := time.Now()

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch requestRefund() {
			case refundSuccess:
				mu.Lock()
				successCount++
				mu.Unlock()
			case refundRejected:
				mu.Lock()
				rejectedCount++
				mu.Unlock()
			default:
				mu.Lock()
				errorCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	duration := time.Since(start)
	qps := float64(*workers) / duration.Seconds()

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("总请求数: %d, QPS: %.2f\n", *workers, qps)
	fmt.Printf("退费成功: %d\n", successCount)
	fmt.Printf("超退被拒: %d\n", rejectedCount)
	fmt.Printf("请求异常: %d\n", errorCount)
	fmt.Println("--------------------------------------------------")
	fmt.Println("核对: 成功笔数 × 单笔金额 不应超过缴费单应缴金额")
}

type refundOutcome int

const (
	refundSuccess refundOutcome = iota
	refundRejected
	refundError
)

func requestRefund() refundOutcome {
	url := fmt.Sprintf("%s/payments/%s/refunds", *baseURL, *paymentID)
	payload := map[string]interface{}{
		"amount": *refundEach,
		"reason": "并发压测",
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return refundError
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+*token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return refundError
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return refundError
	}

	var result struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return refundError
	}

	if resp.StatusCode == http.StatusOK && result.Code == 0 {
		return refundSuccess
	}
	// 业务拒绝（不可退/超退）与网络异常分开统计
	if resp.StatusCode < 500 {
		return refundRejected
	}
	return refundError
}
