package consts

import "time"

// LinkState is the station link lifecycle as observed through link/address events.
type LinkState string

const (
	LinkDown         LinkState = "DOWN"
	LinkStarting     LinkState = "STARTING"     // Driver started, association requested
	LinkConnected    LinkState = "CONNECTED"    // Address acquired
	LinkDisconnected LinkState = "DISCONNECTED" // Association lost, reconnect requested
)

// SyncState is the outcome of a time-sync poll session.
type SyncState string

const (
	SyncPolling   SyncState = "POLLING"
	SyncSynced    SyncState = "SYNCED"
	SyncExhausted SyncState = "EXHAUSTED" // Budget spent, proceeding with best-effort clock
)

// Phase is the orchestrator's position in the bring-up sequence.
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseInitializing Phase = "INITIALIZING"
	PhaseWaitingForIP Phase = "WAITING_FOR_ADDRESS"
	PhaseSyncing      Phase = "SYNCING"
	PhaseReady        Phase = "READY"
	PhaseFailed       Phase = "FAILED"
)

// Time sync defaults
const (
	DefaultNTPServer      = "pool.ntp.org"
	DefaultSyncAttempts   = 10
	DefaultSyncDelay      = 2000 * time.Millisecond
	DefaultMinYear        = 2020
	DefaultNTPInterval    = time.Hour
	DefaultNTPRetry       = 15 * time.Second
	DefaultNTPTimeout     = 5 * time.Second
	DefaultTimezone       = "America/New_York" // EST5EDT,M3.2.0/2,M11.1.0/2
	DefaultRefreshPeriod  = time.Second
	DefaultEventQueueSize = 32
)

// WaitForever makes a signal wait block until the signal is set.
const WaitForever time.Duration = -1

// Environment passed to ready hooks
const (
	EnvSyncState = "NETCLOCK_SYNC_STATE"
	EnvAddress   = "NETCLOCK_ADDRESS"
	EnvSyncTime  = "NETCLOCK_SYNC_TIME"
)

// Personal.AI order the ending
