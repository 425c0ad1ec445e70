package push

import (
	"encoding/json"
	"fmt"

	"kindergarten_billing/internal/pkg/config"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/push"
)

// PushService 家长端消息推送，缴费成功/退费到账等通知使用
// 账号 ID 与平台账号中心的绑定关系由客户端上报
type PushService interface {
	PushToAccount(accountID, title, body string, extParameters map[string]string) error
	PushToAll(title, body string, extParameters map[string]string) error
}

// aliyunPushService 阿里云移动推送实现
type aliyunPushService struct {
	client *push.Client
	appKey int64
}

func NewAliyunPushService() (PushService, error) {
	cfg := config.GlobalConfig.Push

	// 推送配置缺失时由调用方决定是否降级启动
	if cfg.AccessKeyID == "" || cfg.AppKey == 0 {
		return nil, fmt.Errorf("push config is missing")
	}

	client, err := push.NewClientWithAccessKey(cfg.RegionID, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	return &aliyunPushService{client: client, appKey: cfg.AppKey}, nil
}

// PushToAccount 按账号推送，缴费/退费结果通知
func (s *aliyunPushService) PushToAccount(accountID, title, body string, extParameters map[string]string) error {
	return s.send("ACCOUNT", accountID, title, body, extParameters)
}

// PushToAll 全量推送，缴费开始/截止日公告
func (s *aliyunPushService) PushToAll(title, body string, extParameters map[string]string) error {
	return s.send("ALL", "ALL", title, body, extParameters)
}

func (s *aliyunPushService) send(target, targetValue, title, body string, extParameters map[string]string) error {
	request := push.CreatePushRequest()
	request.AppKey = requests.NewInteger(int(s.appKey))
	request.Target = target
	request.TargetValue = targetValue
	request.Title = title
	request.Body = body
	request.DeviceType = "ALL"    // iOS & Android
	request.PushType = "NOTICE"   // 通知栏消息

	// 扩展参数，客户端用来跳转到对应缴费单详情
	if len(extParameters) > 0 {
		extJSON, _ := json.Marshal(extParameters)
		request.AndroidExtParameters = string(extJSON)
		request.IOSExtParameters = string(extJSON)
	}

	_, err := s.client.Push(request)
	return err
}

// GlobalPushService 全局推送实例，配置缺失时为 nil，业务侧需判空
var GlobalPushService PushService

func InitPushService() error {
	service, err := NewAliyunPushService()
	if err != nil {
		return err
	}
	GlobalPushService = service
	return nil
}
