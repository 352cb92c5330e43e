package models

const PaymentRecordedEvent = "PAYMENT_RECORDED"

// PaymentNotification is the Pub/Sub payload the notification service turns
// into a member SMS.
type PaymentNotification struct {
	MemberID     string                  `json:"member_id"`
	MemberNumber string                  `json:"member_number"`
	EventName    string                  `json:"event_name"`
	Parameters   []NotificationParameter `json:"notif_parameters"`
}

type NotificationParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
