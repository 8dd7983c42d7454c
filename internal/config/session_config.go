package config

import "time"

type SessionConfig interface {
	GetMaxSessionsPerUser() int
	GetSessionCleanupSchedule() string
	GetUserPurgeSchedule() string
	GetUserPurgeRetention() time.Duration
}

type Sessions struct{}

var _ SessionConfig = Sessions{}

func (Sessions) GetMaxSessionsPerUser() int {
	if n := GetEnvInt("MAX_SESSIONS_PER_USER", 2); n > 0 {
		return n
	}
	return 2
}

// GetSessionCleanupSchedule is a robfig/cron spec for the expired session sweep.
func (Sessions) GetSessionCleanupSchedule() string {
	return GetEnv("SESSION_CLEANUP_SCHEDULE", "@every 1h")
}

func (Sessions) GetUserPurgeSchedule() string {
	return GetEnv("USER_PURGE_SCHEDULE", "@daily")
}

// GetUserPurgeRetention is how long a soft-deleted user is kept before hard deletion.
func (Sessions) GetUserPurgeRetention() time.Duration {
	return GetEnvDuration("USER_PURGE_RETENTION", 30*24*time.Hour)
}
