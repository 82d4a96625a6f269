package resource

import "github.com/TimeCyber/DeepManus/observability"

const (
	EventAcquireStart   observability.EventType = "resource.acquire.start"
	EventAcquireRetry   observability.EventType = "resource.acquire.retry"
	EventAcquireSuccess observability.EventType = "resource.acquire.success"
	EventAcquireFailed  observability.EventType = "resource.acquire.failed"
	EventRelease        observability.EventType = "resource.release"
	EventReleaseError   observability.EventType = "resource.release.error"
)
