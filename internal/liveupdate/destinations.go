package liveupdate

import "fmt"

// Destination path templates. The exact text matters for backend
// compatibility; do not restructure these.

// DashboardDestination is the dashboard-scoped event path
func DashboardDestination(token string) string {
	return fmt.Sprintf("/user/%s/queue/live", token)
}

// ScreenDestination is the per-physical-screen event path
func ScreenDestination(token string, screenCode int) string {
	return fmt.Sprintf("/user/%s-%d/queue/unique", token, screenCode)
}

// ConnectDestination is the pairing path a waiting screen listens on
func ConnectDestination(screenCode int) string {
	return fmt.Sprintf("/user/%d/queue/connect", screenCode)
}

// WidgetDestination is the per-widget-instance event path
func WidgetDestination(token string, widgetInstanceID int) string {
	return fmt.Sprintf("/user/%s-projectWidget-%d/queue/live", token, widgetInstanceID)
}
