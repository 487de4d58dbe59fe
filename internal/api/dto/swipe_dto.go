package dto

type SwipeRequest struct {
	JobID  string `json:"job_id" binding:"required,uuid"`
	UserID string `json:"user_id" binding:"required"`
	Action string `json:"action" binding:"required,oneof=accept reject"`
}

type SwipeResponse struct {
	SwipeID string `json:"swipe_id"`
	Message string `json:"message"`
	Match   bool   `json:"match"`
}
