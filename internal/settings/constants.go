package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the public site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback public site name.
	DefaultSiteName = "Kanucard Daiko Support"
	// MaintenanceNoticeKey holds a banner shown on the public site, empty when none.
	MaintenanceNoticeKey = "MAINTENANCE_NOTICE"
	// ApprovalValidityDaysKey controls the default approval response window in days.
	ApprovalValidityDaysKey = "APPROVAL_VALIDITY_DAYS"
	// DefaultApprovalValidityDays is the fallback response window (days).
	DefaultApprovalValidityDays = 7
	// NotifyOnTransitionKey toggles customer email on step transitions by default.
	NotifyOnTransitionKey = "NOTIFY_ON_TRANSITION"
	// DefaultNotifyOnTransition sets the transition notification default.
	DefaultNotifyOnTransition = true
)
