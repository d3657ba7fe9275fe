package model

// ServerSource identifies which external source owns a server record.
type ServerSource string

const (
	SourceCloud     ServerSource = "cloud"
	SourceDedicated ServerSource = "dedicated"
)

// UtilizationTier is a discrete bucket derived from 30-day mean CPU.
type UtilizationTier string

const (
	TierIdle     UtilizationTier = "idle"
	TierLow      UtilizationTier = "low"
	TierModerate UtilizationTier = "moderate"
	TierHigh     UtilizationTier = "high"
	TierCritical UtilizationTier = "critical"
)

// ServiceType is the kind of service discovered on a host.
type ServiceType string

const (
	ServiceDocker  ServiceType = "docker"
	ServiceSystemd ServiceType = "systemd"
	ServicePort    ServiceType = "port"
)

// Confidence expresses how certain a recommendation is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RecommendationStatus tracks the user decision on a recommendation.
type RecommendationStatus string

const (
	RecommendationPending   RecommendationStatus = "pending"
	RecommendationAccepted  RecommendationStatus = "accepted"
	RecommendationDismissed RecommendationStatus = "dismissed"
)

// ServerStatusRunning is the lifecycle status rules act on.
const ServerStatusRunning = "running"
