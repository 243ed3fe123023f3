package syncclient

import "tvagent/internal/types"

// RegisterDeviceRequest announces a new device to the server.
type RegisterDeviceRequest struct {
	DeviceName  string `json:"deviceName"`
	DeviceModel string `json:"deviceModel"`
	OSVersion   string `json:"osVersion"`
}

// RegisterDeviceResponse carries the assigned device ID and the short-lived
// pairing code shown to the user.
type RegisterDeviceResponse struct {
	DeviceID    string `json:"deviceId"`
	PairingCode string `json:"pairingCode"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// PairDeviceRequest completes pairing with the code the user confirmed.
type PairDeviceRequest struct {
	DeviceID    string `json:"deviceId"`
	PairingCode string `json:"pairingCode"`
}

// TokenResponse is returned by both pairing and token refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// UsageStatItem is one app's usage snapshot on the wire. DailyLimit and
// CategoryID are pointers because the server distinguishes "no limit" and
// "uncategorized" from zero.
type UsageStatItem struct {
	PackageName         string `json:"packageName"`
	AppName             string `json:"appName"`
	UsageMinutes        int64  `json:"usageMinutes"`
	WeeklyUsageMinutes  int64  `json:"weeklyUsageMinutes"`
	MonthlyUsageMinutes int64  `json:"monthlyUsageMinutes"`
	DailyLimit          *int64 `json:"dailyLimit"`
	CategoryID          *int64 `json:"categoryId"`
	LastUsed            int64  `json:"lastUsed"`
	TotalLaunchCount    int64  `json:"totalLaunchCount"`
	Date                string `json:"date"`
}

// UsageStatsRequest is the upload payload for one report date.
type UsageStatsRequest struct {
	DeviceID   string          `json:"deviceId"`
	AppStats   []UsageStatItem `json:"appStats"`
	Timestamp  int64           `json:"timestamp"`
	ReportDate string          `json:"reportDate"`
}

// UsageStatsResponse acknowledges an upload.
type UsageStatsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ControlCommandResponse wraps the pending command list for a device.
type ControlCommandResponse struct {
	Commands []types.ControlCommand `json:"commands"`
}

// StatItemFromRecord converts a stored usage record to its wire shape,
// mapping zero limit and zero category to null.
func StatItemFromRecord(rec types.UsageRecord) UsageStatItem {
	item := UsageStatItem{
		PackageName:         rec.PackageName,
		AppName:             rec.AppName,
		UsageMinutes:        rec.UsageMinutes,
		WeeklyUsageMinutes:  rec.WeeklyUsageMinutes,
		MonthlyUsageMinutes: rec.MonthlyUsageMinutes,
		LastUsed:            rec.LastUsed,
		TotalLaunchCount:    rec.TotalLaunchCount,
		Date:                rec.Date,
	}
	if rec.DailyLimit > 0 {
		limit := rec.DailyLimit
		item.DailyLimit = &limit
	}
	if rec.CategoryID > 0 {
		category := rec.CategoryID
		item.CategoryID = &category
	}
	return item
}
