package uploader

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"kindergarten_billing/internal/pkg/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// 缴费凭证只接受图片和 PDF，单个文件上限 10MB
const maxReceiptSize = 10 << 20

var allowedReceiptExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

type Uploader interface {
	UploadReceipt(file *multipart.FileHeader) (string, error)
}

type aliyunOSSUploader struct {
	bucket *oss.Bucket
	config config.OSSConfig
}

func NewAliyunOSSUploader() (Uploader, error) {
	cfg := config.GlobalConfig.OSS
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, err
	}

	return &aliyunOSSUploader{bucket: bucket, config: cfg}, nil
}

// UploadReceipt 上传缴费凭证（银行转账回单等）
// 对象键按天归档: receipts/YYYYMMDD/uuid.ext
func (u *aliyunOSSUploader) UploadReceipt(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedReceiptExts[ext] {
		return "", fmt.Errorf("unsupported receipt file type: %s", ext)
	}
	if file.Size > maxReceiptSize {
		return "", fmt.Errorf("receipt file too large: %d bytes", file.Size)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := fmt.Sprintf("receipts/%s/%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	if err := u.bucket.PutObject(key, src); err != nil {
		return "", err
	}

	// 凭证桶为 public-read（或走 CDN），私有桶需改为签名 URL
	return fmt.Sprintf("https://%s.%s/%s", u.config.BucketName, u.config.Endpoint, key), nil
}

// GlobalUploader 全局上传实例，配置缺失时为 nil
var GlobalUploader Uploader

func InitUploader() error {
	uploader, err := NewAliyunOSSUploader()
	if err != nil {
		return err
	}
	GlobalUploader = uploader
	return nil
}
