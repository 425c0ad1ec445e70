package strategy

import "github.com/shopspring/decimal"

// PaymentStrategy 支付渠道策略
type PaymentStrategy interface {
	// Pay 以缴费单号为商户单号发起支付，返回渠道支付参数（如 URL、JSON 串）
	Pay(paymentID string, amount decimal.Decimal, subject string) (string, error)

	// Notify 处理回调通知，返回缴费单号、渠道流水号、支付是否成功
	Notify(params interface{}) (paymentID, transactionID string, success bool, err error)
}
