package service

// Aliases that expose the concrete service types to the external test
// package, which cannot name unexported identifiers directly.
type (
	IncidentServiceImpl     = incidentService
	NotificationServiceImpl = notificationService
	UserServiceImpl         = userService
)
