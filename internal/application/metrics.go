package application

import "expvar"

// Counters published on /api/debug/vars.
var (
	accountsCreated  = expvar.NewInt("accounts_created")
	accountsVerified = expvar.NewInt("accounts_verified")
	loginsSucceeded  = expvar.NewInt("logins_succeeded")
	loginsFailed     = expvar.NewInt("logins_failed")
	messagesSent     = expvar.NewInt("messages_sent")
	messagesRejected = expvar.NewInt("messages_rejected")
	messagesDeleted  = expvar.NewInt("messages_deleted")
	topicsCreated    = expvar.NewInt("topics_created")
	emailFailures    = expvar.NewInt("verification_email_failures")
)
