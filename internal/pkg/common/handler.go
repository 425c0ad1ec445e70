package handler

import (
	"mime/multipart"
	"net/http"
	"sync"

	"kindergarten_billing/internal/pkg/uploader"
	"kindergarten_billing/pkg/response"

	"github.com/gin-gonic/gin"
)

// 批量上传时的并发上限，避免单次请求占满 OSS 连接
const uploadConcurrency = 5

// UploadReceipts 上传缴费凭证 (银行转账回单等，支持批量)
// 返回的 URL 由调用方写入缴费单 metadata
// @Summary 上传缴费凭证到 OSS (支持批量)
// @Tags Common
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files"
// @Success 200 {object} response.Response{data=[]string} "URLs"
// @Router /receipts/upload [post]
func UploadReceipts(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "No files uploaded")
		return
	}

	if uploader.GlobalUploader == nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Uploader not initialized")
		return
	}

	// 按索引写结果，保持与上传顺序一致
	urls := make([]string, len(files))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var uploadErr error

	sem := make(chan struct{}, uploadConcurrency)

	for i, file := range files {
		wg.Add(1)
		go func(index int, f *multipart.FileHeader) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			url, err := uploader.GlobalUploader.UploadReceipt(f)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if uploadErr == nil {
					uploadErr = err
				}
				return
			}
			urls[index] = url
		}(i, file)
	}

	wg.Wait()

	if uploadErr != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Upload failed: "+uploadErr.Error())
		return
	}

	response.Success(c, urls)
}
