package consts

const (
	MembersCollection      = "members"
	TransactionsCollection = "transactions"
	LoansCollection        = "loans"
)

// Redis keys
const (
	IdempotencyKeyPrefix = "coop-ledger:idempotency:"
	CanonicalMembersKey  = "coop-ledger:members:canonical"
)

const (
	ReportFileDateLayout = "2006-01-02"
	ReportContentType    = "text/csv"
	IdempotencyHeader    = "Idempotency-Key"
	TraceIDHeader        = "X-Trace-Id"
)
