package types

import (
	"time"
)

type Config struct {
	WebhookURL              string
	Username                string
	AvatarURL               string
	NodeName                string
	StorageDirectory        string
	StatusAddr              string
	RetryAttempts           int
	DeliveryWorkers         int
	RequestTimeout          time.Duration
	ConnectTimeout          time.Duration
	DedupWindow             time.Duration
	DedupRefreshOnDuplicate bool
	ShutdownGrace           time.Duration
	SwarmOnly               bool
	StartupNotice           bool
}
