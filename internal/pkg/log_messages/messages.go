package log_messages

const (
	ServerStartFailure          = "failed to start server"
	ServerExiting               = "Server exiting"
	FailedLoadingConfiguration  = "Failed to load configuration"
	CleanupStarted              = "Starting cleanup of resources..."
	CleanupCompleted            = "All resources cleaned up successfully"
	GCSClientClosedSuccessfully = "GCS client closed successfully"
	ServerListening             = "HTTP server listening"
	ShutdownSignalReceived      = "Shutdown signal received"
	OtelSetupFailed             = "Failed to set up OpenTelemetry, continuing without tracing"
	SnapshotWarmedFromMirror    = "Member snapshot warmed from Redis mirror"

	// Store
	ErrorCreatingMember        = "Error creating member document"
	SuccessMemberCreation      = "Member document created"
	ErrorFetchingMember        = "Error fetching member document"
	ErrorListingMembers        = "Error listing member documents"
	ErrorUpdatingMember        = "Error updating member document"
	ErrorDeletingMember        = "Error deleting member document"
	ErrorCreatingTransaction   = "Error creating transaction document"
	SuccessTransactionCreation = "Transaction document created"
	ErrorUpdatingTransaction   = "Error updating transaction status"
	ErrorFetchingTransactions  = "Error fetching transaction documents"
	ErrorCreatingLoan          = "Error creating loan document"
	ErrorFetchingLoan          = "Error fetching loan document"
	ErrorAppendingLoanPayment  = "Error appending loan payment"
	ErrorUpdatingLoan          = "Error updating loan document"
	MemberNotFound             = "Member not found"
	LoanNotFound               = "Loan not found"
	InvalidQueryOperator       = "Unsupported query operator"

	// Subscription
	SubscriptionStarted     = "Snapshot subscription started"
	SubscriptionStopped     = "Snapshot subscription stopped"
	SubscriptionReadFailed  = "Snapshot read failed"
	ChangeStreamUnavailable = "Change stream unavailable, falling back to polling"
	ChangeStreamFailed      = "Change stream failed, restarting"
	SnapshotApplied         = "Member snapshot applied"
	SnapshotMirrorFailed    = "Failed to mirror member snapshot to Redis"
	SnapshotWarmFailed      = "Failed to warm member snapshot from Redis"

	// Payments
	PaymentValidationFailed    = "Payment request failed validation"
	PaymentApplied             = "Payment applied to member ledger"
	PaymentFailed              = "Payment failed for member"
	PaymentConflictRetry       = "Member changed during payment, retrying"
	PartialConsistencyDetected = "Member ledger and transaction record diverged"
	RecoveryStarted            = "Recovering pending ledger transactions"
	RecoveryCompleted          = "Pending ledger transaction recovery completed"
	RecoveryFailed             = "Pending ledger transaction recovery failed"
	DuplicatePaymentRequest    = "Duplicate payment request rejected"
	IdempotencyCheckFailed     = "Idempotency check failed"
	IdempotencyKeyReleased     = "Idempotency key released, no member was changed"

	// Events
	KafkaProducerCreated        = "Kafka producer created"
	PubsubPublisherCreated      = "PubSub publisher created"
	ErrorPublishingLedgerEvent  = "Failed to publish ledger event"
	ErrorPublishingNotification = "Failed to publish payment notification"
	ErrorMarshallingJSON        = "Error marshalling JSON"
	LedgerEventDropped          = "Ledger event dropped before it could be queued"
	LedgerEventsAbandoned       = "Ledger events still queued at shutdown"

	// Reports
	ErrorWritingReport        = "Error writing report"
	ErrorUploadingToGCSBucket = "Error uploading to GCS bucket"
	ErrorClosingGCSWriter     = "Error closing GCS writer"
	ErrorClosingGCSClient     = "Error closing GCS client"
	UploadedToGCSBucket       = "Uploaded report to GCS bucket"

	// Members and loans
	MemberRegistered           = "Member registered"
	MemberRegistrationRejected = "Member registration rejected"
	MemberUpdated              = "Member updated"
	MemberDeleted              = "Member deleted"
	LoanApplicationCreated     = "Loan application created"
	LoanPaymentRecorded        = "Loan payment recorded"
	LoanStatusUpdated          = "Loan status updated"
)
