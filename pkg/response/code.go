package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 认证错误 100xx
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 收费模块错误 300xx
	ErrPaymentNotFound      = 30001
	ErrInvalidTransition    = 30002
	ErrDuplicateTransaction = 30003
	ErrRefundNotAllowed     = 30004
	ErrInvalidRefundAmount  = 30005
	ErrRefundExceedsAmount  = 30006
	ErrInvoiceNotAvailable  = 30007
	ErrEnrollmentNotFound   = 30008

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
