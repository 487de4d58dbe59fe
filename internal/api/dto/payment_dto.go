package dto

type CompletePaymentRequest struct {
	TxID string `json:"txid" binding:"required"`
}

type PaymentResponse struct {
	PaymentID string `json:"payment_id"`
	JobID     string `json:"job_id,omitempty"`
	Status    string `json:"status"`
	TxID      string `json:"txid,omitempty"`
	Message   string `json:"message"`
}
